package tui

import (
	"github.com/rivo/tview"
)

// StatusBar is a one-line toast area at the bottom of a screen.
type StatusBar struct {
	view  *tview.TextView
	theme Theme
}

// NewStatusBar creates an empty status bar.
func NewStatusBar(theme Theme) *StatusBar {
	view := tview.NewTextView()
	view.SetDynamicColors(true).
		SetTextAlign(tview.AlignRight).
		SetBackgroundColor(theme.Background)
	return &StatusBar{view: view, theme: theme}
}

// Primitive returns the widget for layouts.
func (s *StatusBar) Primitive() tview.Primitive {
	return s.view
}

// Success shows a positive message.
func (s *StatusBar) Success(message string) {
	s.view.SetText(s.theme.SuccessTag + tview.Escape(message) + "[-]")
}

// Failure shows an error message.
func (s *StatusBar) Failure(message string) {
	s.view.SetText(s.theme.ErrorTag + tview.Escape(message) + "[-]")
}

// Hint shows a muted help message.
func (s *StatusBar) Hint(message string) {
	s.view.SetText(s.theme.MutedTag + tview.Escape(message) + "[-]")
}

// Text returns the current message without color tags.
func (s *StatusBar) Text() string {
	return s.view.GetText(true)
}
