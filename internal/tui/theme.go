package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Theme holds the colors used by the popup and settings screens.
type Theme struct {
	Background    tcell.Color
	Foreground    tcell.Color
	SecondaryText tcell.Color
	Accent        tcell.Color
	FieldBg       tcell.Color
	ButtonBg      tcell.Color
	ButtonFg      tcell.Color
	SuccessTag    string
	ErrorTag      string
	MutedTag      string
}

// DefaultTheme follows the terminal's default background.
func DefaultTheme() Theme {
	return Theme{
		Background:    tcell.ColorDefault,
		Foreground:    tcell.ColorWhite,
		SecondaryText: tcell.ColorGray,
		Accent:        tcell.NewRGBColor(94, 106, 210), // Linear indigo
		FieldBg:       tcell.NewRGBColor(40, 42, 54),
		ButtonBg:      tcell.NewRGBColor(94, 106, 210),
		ButtonFg:      tcell.ColorWhite,
		SuccessTag:    "[green]",
		ErrorTag:      "[red]",
		MutedTag:      "[gray]",
	}
}

// applyForm styles a form consistently.
func (t Theme) applyForm(form *tview.Form) {
	form.SetBackgroundColor(t.Background)
	form.SetLabelColor(t.Foreground)
	form.SetFieldBackgroundColor(t.FieldBg)
	form.SetFieldTextColor(t.Foreground)
	form.SetButtonBackgroundColor(t.ButtonBg)
	form.SetButtonTextColor(t.ButtonFg)
	form.SetBorder(true).
		SetBorderColor(t.Accent).
		SetTitleColor(t.Foreground)
}
