package tui

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/roeyazroel/linear-task/internal/datacache"
	"github.com/roeyazroel/linear-task/internal/issueflow"
	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/selection"
	"github.com/roeyazroel/linear-task/internal/storage"
	"github.com/roeyazroel/linear-task/internal/tabinfo"
)

const (
	pageLoading       = "loading"
	pageNotConfigured = "not-configured"
	pageForm          = "form"
	pageSettings      = "settings"

	createLabel   = "Create Issue"
	creatingLabel = "Creating..."

	noneOption    = "(none)"
	loadingOption = "Loading..."
	failedOption  = "Failed to load (Ctrl-R to retry)"

	formHint = "Ctrl-S: create • Ctrl-R: retry failed lists • Esc: close"
)

// PopupDeps are the collaborators of a Popup.
type PopupDeps struct {
	Session   *datacache.Session
	Store     storage.Store
	Clipboard issueflow.Clipboard
	Tab       tabinfo.Tab
	// Describe renders the prefilled description for the tab.
	Describe func(url, title string) string
}

// fieldView is one selector of the form. ids is parallel to the dropdown
// options; an optional field starts with an empty "(none)" entry.
type fieldView struct {
	field    selection.Field
	optional bool
	dropdown *tview.DropDown
	ids      []string
	failed   bool
}

// Popup is the issue-creation screen. All widget and selection state is
// touched only on the UI goroutine; background loads hand their results
// back through queueUpdateDraw.
type Popup struct {
	app      *tview.Application
	theme    Theme
	session  *datacache.Session
	store    storage.Store
	creator  *issueflow.Creator
	tab      tabinfo.Tab
	describe func(url, title string) string

	pages        *tview.Pages
	form         *tview.Form
	header       *tview.TextView
	status       *StatusBar
	settings     *SettingsForm
	fields       map[selection.Field]*fieldView
	titleInput   *tview.InputField
	descInput    *tview.TextArea
	createButton *tview.Button

	sel        selection.State
	configured bool
	creating   bool

	// ctx is the context of the running popup; widget callbacks use it.
	ctxMu sync.RWMutex
	ctx   context.Context

	queueUpdateDraw func(func())
	runAsync        func(func())
}

// NewPopup builds the popup widgets. Nothing is loaded until Run.
func NewPopup(deps PopupDeps) *Popup {
	p := &Popup{
		app:      tview.NewApplication(),
		theme:    DefaultTheme(),
		session:  deps.Session,
		store:    deps.Store,
		tab:      deps.Tab,
		describe: deps.Describe,
		fields:   make(map[selection.Field]*fieldView, len(selection.Fields)),
		ctx:      context.Background(),
		runAsync: func(f func()) { go f() },
	}
	p.queueUpdateDraw = func(f func()) { p.app.QueueUpdateDraw(f) }
	p.creator = issueflow.NewCreator(deps.Session, deps.Store, deps.Clipboard, p, deps.Describe)

	p.status = NewStatusBar(p.theme)
	p.buildForm()

	p.settings = NewSettingsForm(p.theme, p.store, p.status, p.onSettingsSaved, p.onSettingsCancelled)
	p.settings.queueUpdateDraw = func(f func()) { p.queueUpdateDraw(f) }
	p.settings.runAsync = func(f func()) { p.runAsync(f) }

	p.pages = tview.NewPages().
		AddPage(pageLoading, p.buildLoadingPage(), true, true).
		AddPage(pageNotConfigured, p.buildNotConfiguredPage(), true, false).
		AddPage(pageForm, p.form, true, false).
		AddPage(pageSettings, p.settings.Primitive(), true, false)

	return p
}

func (p *Popup) buildLoadingPage() tview.Primitive {
	view := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("Loading...")
	view.SetBackgroundColor(p.theme.Background)
	return view
}

func (p *Popup) buildNotConfiguredPage() tview.Primitive {
	message := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("Linear API key not configured.\nAdd your personal API key in Settings to create issues.")
	message.SetBackgroundColor(p.theme.Background)

	buttons := tview.NewForm().
		AddButton("Go to Settings", p.showSettings).
		AddButton("Close", p.Stop)
	buttons.SetButtonsAlign(tview.AlignCenter)
	buttons.SetButtonBackgroundColor(p.theme.ButtonBg)
	buttons.SetButtonTextColor(p.theme.ButtonFg)
	buttons.SetBackgroundColor(p.theme.Background)
	buttons.SetCancelFunc(p.Stop)

	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(message, 3, 0, false).
		AddItem(buttons, 3, 0, true).
		AddItem(nil, 0, 1, false)
}

func (p *Popup) buildForm() {
	p.header = tview.NewTextView().SetDynamicColors(true)
	p.header.SetBackgroundColor(p.theme.Background)
	p.header.SetText(p.headerText())

	p.form = tview.NewForm()
	p.theme.applyForm(p.form)
	p.form.SetTitle(" New Linear Issue ")

	for _, field := range selection.Fields {
		fv := &fieldView{
			field:    field,
			optional: field == selection.FieldAssignee || field == selection.FieldState,
			dropdown: tview.NewDropDown().SetLabel(field.Label()),
		}
		fv.dropdown.SetFieldWidth(40)
		fv.setPlaceholder(loadingOption)
		p.fields[field] = fv
		p.form.AddFormItem(fv.dropdown)
	}

	p.titleInput = tview.NewInputField().
		SetLabel("Title").
		SetFieldWidth(60).
		SetText(p.tab.Title)
	p.form.AddFormItem(p.titleInput)

	p.descInput = tview.NewTextArea().
		SetLabel("Description").
		SetSize(4, 60)
	if p.describe != nil {
		p.descInput.SetText(p.describe(p.tab.URL, p.tab.Title), true)
	}
	p.form.AddFormItem(p.descInput)

	p.form.AddButton(createLabel, func() { p.createIssue(p.context()) })
	p.createButton = p.form.GetButton(p.form.GetButtonCount() - 1)
	p.createButton.SetDisabled(true)
	p.form.SetCancelFunc(p.Stop)
}

func (p *Popup) headerText() string {
	if p.tab.Title == "" {
		return p.theme.MutedTag + tview.Escape(p.tab.URL) + "[-]"
	}
	return tview.Escape(p.tab.Title) + "\n" + p.theme.MutedTag + tview.Escape(p.tab.URL) + "[-]"
}

func (p *Popup) context() context.Context {
	p.ctxMu.RLock()
	defer p.ctxMu.RUnlock()
	return p.ctx
}

// Run shows the popup and blocks until it is closed.
func (p *Popup) Run(ctx context.Context) error {
	p.ctxMu.Lock()
	p.ctx = ctx
	p.ctxMu.Unlock()

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(p.header, 2, 0, false).
		AddItem(p.pages, 0, 1, true).
		AddItem(p.status.Primitive(), 1, 0, false)

	p.app.SetInputCapture(p.handleKey)
	p.status.Hint(formHint)
	p.start(ctx)

	logger.Info("tui.popup: starting url=%s", p.tab.URL)
	err := p.app.SetRoot(layout, true).EnableMouse(true).Run()
	logger.Info("tui.popup: closed")
	return err
}

// Stop closes the popup. Pending fetches are abandoned with the session.
func (p *Popup) Stop() {
	p.app.Stop()
}

func (p *Popup) handleKey(event *tcell.EventKey) *tcell.EventKey {
	front, _ := p.pages.GetFrontPage()
	if front != pageForm {
		return event
	}
	switch event.Key() {
	case tcell.KeyCtrlR:
		p.retryFailed(p.context())
		return nil
	case tcell.KeyCtrlS:
		p.createIssue(p.context())
		return nil
	}
	return event
}

// start checks for a credential and either shows the not-configured page or
// the form, restoring the last-used selection and loading every collection.
func (p *Popup) start(ctx context.Context) {
	p.pages.SwitchToPage(pageLoading)
	p.runAsync(func() {
		ok, err := p.session.HasCredential(ctx)
		sel, selErr := selection.Restore(ctx, p.store)
		p.queueUpdateDraw(func() {
			if err != nil {
				logger.ErrorWithErr(err, "tui.popup: failed to read API key")
				p.status.Failure("Failed to read settings")
			}
			p.configured = ok
			if !ok {
				p.pages.SwitchToPage(pageNotConfigured)
				return
			}
			if selErr != nil {
				logger.ErrorWithErr(selErr, "tui.popup: failed to restore selection")
			} else {
				p.sel = sel
			}
			p.pages.SwitchToPage(pageForm)
			p.updateCreateButton()
			for _, kind := range datacache.Kinds {
				p.loadKind(ctx, kind)
			}
		})
	})
}

// loadKind fills one selector from the session cache. Must run on the UI
// goroutine.
func (p *Popup) loadKind(ctx context.Context, kind datacache.Kind) {
	fv := p.fields[kind.Field()]
	fv.failed = false
	fv.setPlaceholder(loadingOption)
	p.runAsync(func() {
		options, err := p.session.Options(ctx, kind)
		p.queueUpdateDraw(func() {
			p.applyOptions(kind, options, err)
		})
	})
}

func (p *Popup) applyOptions(kind datacache.Kind, options []selection.Option, err error) {
	fv := p.fields[kind.Field()]
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.ErrorWithErr(err, "tui.popup: failed to load %s", kind)
		fv.failed = true
		fv.setPlaceholder(failedOption)
		p.status.Failure("Failed to load " + kind.String())
		return
	}

	if p.sel.Apply(fv.field, options) {
		logger.Debug("tui.popup: auto-selected field=%s id=%s", fv.field.Label(), p.sel.Get(fv.field))
	}
	fv.setOptions(options, p.sel.Get(fv.field), func(id string) {
		p.sel.Set(fv.field, id)
		p.updateCreateButton()
	})
	p.updateCreateButton()
}

// retryFailed reloads every collection whose fetch failed.
func (p *Popup) retryFailed(ctx context.Context) {
	retried := 0
	for _, kind := range datacache.Kinds {
		if !p.session.Retry(kind) {
			continue
		}
		retried++
		p.loadKind(ctx, kind)
	}
	if retried > 0 {
		p.status.Hint(formHint)
	}
}

func (p *Popup) ready() bool {
	return p.configured && !p.creating && p.sel.ProjectID != "" && p.sel.TeamID != ""
}

func (p *Popup) updateCreateButton() {
	if p.creating {
		p.createButton.SetLabel(creatingLabel)
	} else {
		p.createButton.SetLabel(createLabel)
	}
	p.createButton.SetDisabled(!p.ready())
}

// createIssue submits the form. Must run on the UI goroutine.
func (p *Popup) createIssue(ctx context.Context) {
	if !p.ready() {
		return
	}
	req := issueflow.Request{
		Title:       strings.TrimSpace(p.titleInput.GetText()),
		Description: p.descInput.GetText(),
		URL:         p.tab.URL,
		Selection:   p.sel,
	}
	p.creating = true
	p.updateCreateButton()

	p.runAsync(func() {
		_, err := p.creator.Create(ctx, req)
		p.queueUpdateDraw(func() {
			p.creating = false
			if errors.Is(err, issueflow.ErrNotReady) {
				p.status.Failure("Select a project and a team first")
			}
			p.updateCreateButton()
		})
	})
}

// Success implements issueflow.Notifier.
func (p *Popup) Success(message string) {
	p.queueUpdateDraw(func() { p.status.Success(message) })
}

// Failure implements issueflow.Notifier.
func (p *Popup) Failure(message string) {
	p.queueUpdateDraw(func() { p.status.Failure(message) })
}

func (p *Popup) showSettings() {
	p.pages.SwitchToPage(pageSettings)
	p.settings.Load(p.context())
}

func (p *Popup) onSettingsSaved() {
	// A key saved after a missing-credential start takes effect on the next
	// fetch; nothing was remembered for the failed attempt.
	p.start(p.context())
}

func (p *Popup) onSettingsCancelled() {
	if p.configured {
		p.pages.SwitchToPage(pageForm)
		return
	}
	p.pages.SwitchToPage(pageNotConfigured)
}

func (fv *fieldView) setPlaceholder(text string) {
	fv.ids = nil
	fv.dropdown.SetOptions([]string{text}, nil)
	fv.dropdown.SetCurrentOption(0)
}

// setOptions replaces the choices and selects current when present.
func (fv *fieldView) setOptions(options []selection.Option, current string, onSelect func(id string)) {
	labels := make([]string, 0, len(options)+1)
	ids := make([]string, 0, len(options)+1)
	if fv.optional {
		labels = append(labels, noneOption)
		ids = append(ids, "")
	}
	for _, opt := range options {
		labels = append(labels, opt.Name)
		ids = append(ids, opt.ID)
	}
	fv.ids = ids

	fv.dropdown.SetOptions(labels, nil)
	selected := -1
	for i, id := range ids {
		if id == current {
			selected = i
			break
		}
	}
	fv.dropdown.SetCurrentOption(selected)
	fv.dropdown.SetSelectedFunc(func(_ string, index int) {
		if index < 0 || index >= len(fv.ids) {
			return
		}
		onSelect(fv.ids[index])
	})
}

// selectedID returns the ID of the dropdown's current option.
func (fv *fieldView) selectedID() string {
	index, _ := fv.dropdown.GetCurrentOption()
	if index < 0 || index >= len(fv.ids) {
		return ""
	}
	return fv.ids[index]
}
