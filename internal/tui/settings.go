package tui

import (
	"context"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/storage"
)

const (
	settingsKeyLabel = "Linear API Key"

	// SavedMessage is shown after the API key is stored.
	SavedMessage = "Linear API key saved!"
)

// SettingsForm edits the stored Linear API key.
type SettingsForm struct {
	form   *tview.Form
	input  *tview.InputField
	store  storage.Store
	status *StatusBar

	queueUpdateDraw func(func())
	runAsync        func(func())

	onSaved  func()
	onCancel func()
}

// NewSettingsForm builds the form. onSaved runs on the UI goroutine after a
// successful save; onCancel when the user presses Escape.
func NewSettingsForm(theme Theme, store storage.Store, status *StatusBar, onSaved, onCancel func()) *SettingsForm {
	sf := &SettingsForm{
		store:    store,
		status:   status,
		onSaved:  onSaved,
		onCancel: onCancel,
		runAsync: func(f func()) { go f() },
	}

	sf.input = tview.NewInputField().
		SetLabel(settingsKeyLabel).
		SetFieldWidth(48).
		SetPlaceholder("lin_api_xxx").
		SetMaskCharacter('*')

	sf.form = tview.NewForm().
		AddFormItem(sf.input).
		AddButton("Save", func() { sf.save(context.Background()) })
	theme.applyForm(sf.form)
	sf.form.SetTitle(" Linear API Key ")
	sf.form.SetCancelFunc(func() {
		if sf.onCancel != nil {
			sf.onCancel()
		}
	})
	sf.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			sf.save(context.Background())
		}
	})

	return sf
}

// Primitive returns the form widget.
func (sf *SettingsForm) Primitive() tview.Primitive {
	return sf.form
}

// Load fills the input with the stored key, if any.
func (sf *SettingsForm) Load(ctx context.Context) {
	sf.runAsync(func() {
		apiKey, found, err := storage.LoadString(ctx, sf.store, storage.KeyAPIKey)
		if err != nil {
			logger.ErrorWithErr(err, "tui.settings: failed to load API key")
			return
		}
		if !found || apiKey == "" {
			return
		}
		sf.queueUpdateDraw(func() {
			sf.input.SetText(apiKey)
		})
	})
}

func (sf *SettingsForm) save(ctx context.Context) {
	apiKey := strings.TrimSpace(sf.input.GetText())
	sf.runAsync(func() {
		err := sf.store.Save(ctx, storage.KeyAPIKey, apiKey)
		sf.queueUpdateDraw(func() {
			if err != nil {
				logger.ErrorWithErr(err, "tui.settings: failed to save API key")
				sf.status.Failure("Failed to save Linear API key")
				return
			}
			logger.Info("tui.settings: API key saved")
			sf.status.Success(SavedMessage)
			if sf.onSaved != nil {
				sf.onSaved()
			}
		})
	})
}

// RunSettings shows the settings form as a standalone screen until the user
// presses Escape or Ctrl-C.
func RunSettings(ctx context.Context, store storage.Store) error {
	theme := DefaultTheme()
	app := tview.NewApplication()
	status := NewStatusBar(theme)
	status.Hint("Enter: save • Esc: quit")

	sf := NewSettingsForm(theme, store, status, nil, app.Stop)
	sf.queueUpdateDraw = func(f func()) { app.QueueUpdateDraw(f) }

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(sf.Primitive(), 0, 1, true).
		AddItem(status.Primitive(), 1, 0, false)

	sf.Load(ctx)
	return app.SetRoot(layout, true).EnableMouse(true).Run()
}
