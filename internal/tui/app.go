// Package tui is the PromptIt panel: the display surface for promptlet
// results plus the screens to pick, chain and manage promptlets.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/dispatch"
	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/llm"
	"github.com/sant0-9/promptit/internal/menu"
	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/storage"
	"github.com/sant0-9/promptit/internal/surface"
)

type view int

const (
	viewWelcome view = iota
	viewSetup
	viewProcessing
	viewResult
	viewChain
	viewError
	viewManage
	viewHelp
)

// Deps are the components the panel drives.
type Deps struct {
	Config     *config.Config
	ConfigPath string
	KV         storage.KV
	Store      *promptlet.Store
	Executor   *executor.Executor
	Creds      executor.CredentialSource
	Mailbox    *dispatch.Mailbox
	Menu       *menu.Menu
	Logger     *zap.Logger

	// StoragePath is the database file watched for writes by other
	// processes. Empty disables the watch.
	StoragePath string

	// NeedsSetup opens the provider wizard first.
	NeedsSetup bool

	// Manage opens the management screen instead of the picker.
	Manage bool
}

type App struct {
	width    int
	height   int
	view     view
	state    *state
	quitting bool

	deps    Deps
	surface *surface.Surface
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger

	// menuChanged carries the items of the latest rebuild and
	// storageChanged the writes of other processes into the update loop.
	menuChanged    chan []menu.Item
	storageChanged chan struct{}
}

func NewApp(ctx context.Context, deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		view:           viewWelcome,
		state:          newState(),
		deps:           deps,
		surface:        surface.New(deps.Config.MaxChainDepth),
		ctx:            ctx,
		cancel:         cancel,
		log:            deps.Logger.Named("panel"),
		menuChanged:    make(chan []menu.Item, 1),
		storageChanged: make(chan struct{}, 1),
	}
	if deps.Menu != nil {
		deps.Menu.OnChange(func(items []menu.Item) { replace(a.menuChanged, items) })
	}
	return a
}

// signal is a non-blocking send; one pending notification is enough.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// replace leaves items as the only pending value on ch.
func replace(ch chan []menu.Item, items []menu.Item) {
	for {
		select {
		case ch <- items:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.WindowSize(), textarea.Blink, a.rebuildMenu(), a.awaitHandoff()}
	if a.deps.Menu != nil {
		cmds = append(cmds, a.waitMenu())
	}
	cmds = append(cmds, a.waitStorage())

	switch {
	case a.deps.NeedsSetup:
		a.view = viewSetup
		return tea.Batch(append(cmds, textinput.Blink)...)
	case a.deps.Manage:
		a.view = viewManage
		cmds = append(cmds, a.loadManage())
	}
	a.state.input.Focus()
	return tea.Batch(append(cmds, a.testProvider())...)
}

// Close stops the goroutines started by the app's commands.
func (a *App) Close() {
	a.cancel()
}

// StorageChanged tells the app another process wrote to storage.
func (a *App) StorageChanged() {
	signal(a.storageChanged)
}

func (a *App) testProvider() tea.Cmd {
	return func() tea.Msg {
		key, err := a.deps.Creds.APIKey(a.ctx)
		if err != nil {
			return providerErrorMsg{err}
		}
		if key == "" && llm.NeedsAPIKey(a.deps.Config.Provider) {
			return providerErrorMsg{executor.ErrMissingCredential}
		}
		provider, err := llm.NewProvider(a.deps.Config, key)
		if err != nil {
			return providerErrorMsg{err}
		}

		ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
		defer cancel()

		if err := provider.Ping(ctx); err != nil {
			return providerErrorMsg{err}
		}
		return providerReadyMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case spinner.TickMsg:
		if a.view != viewProcessing {
			return a, nil
		}
		var cmd tea.Cmd
		a.state.spinner, cmd = a.state.spinner.Update(msg)
		return a, cmd

	case menuItemsMsg:
		a.state.items = msg.items
		a.clampPicker()
		return a, nil

	case menuChangedMsg:
		// The menu already rebuilt itself; only show the new items.
		a.state.items = msg.items
		a.clampPicker()
		return a, a.waitMenu()

	case storageChangedMsg:
		return a, tea.Batch(a.takeHandoff(), a.rebuildMenu(), a.waitStorage())

	case handoffMsg:
		var cmd tea.Cmd
		if msg.handoff != nil {
			cmd = a.handleHandoff(*msg.handoff)
		}
		if msg.direct {
			cmd = tea.Batch(cmd, a.listenHandoff())
		}
		return a, cmd

	case resultMsg:
		a.handleResult(msg)
		return a, nil

	case copiedMsg:
		if msg.err != nil {
			a.state.status = "Copy failed: " + msg.err.Error()
		} else {
			a.state.status = "Copied to clipboard"
		}
		return a, nil

	case manageLoadedMsg:
		a.handleManageLoaded(msg)
		return a, nil

	case setupCompleteMsg:
		a.state.status = "Settings saved"
		a.view = viewWelcome
		a.state.input.Focus()
		return a, a.testProvider()

	case setupErrorMsg:
		a.state.setupError = msg.error
		return a, nil

	case providerReadyMsg:
		a.state.providerReady = true
		a.state.providerError = nil
		return a, nil

	case providerErrorMsg:
		a.state.providerReady = false
		a.state.providerError = msg.error
		a.log.Debug("provider check failed", zap.Error(msg.error))
		return a, nil

	case errMsg:
		a.state.status = msg.Error()
		return a, nil
	}

	// Update text inputs based on view
	switch {
	case a.view == viewSetup && a.state.setupStep == 1:
		var cmd tea.Cmd
		a.state.apiKeyInput, cmd = a.state.apiKeyInput.Update(msg)
		cmds = append(cmds, cmd)
	case a.view == viewWelcome && a.state.input.Focused():
		var cmd tea.Cmd
		a.state.input, cmd = a.state.input.Update(msg)
		cmds = append(cmds, cmd)
	case a.view == viewChain:
		cmds = append(cmds, a.updateChainInputs(msg))
	case a.view == viewResult:
		var cmd tea.Cmd
		a.state.output, cmd = a.state.output.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// handleKey reports whether the key was consumed.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		a.quit()
		return tea.Quit, true
	}

	switch a.view {
	case viewSetup:
		return a.handleSetupKey(msg)
	case viewWelcome:
		return a.handleWelcomeKey(msg)
	case viewProcessing:
		if key.Matches(msg, keys.Quit) {
			// The response, if it ever arrives, is dropped as stale.
			a.surface.Reset()
			a.view = viewWelcome
			return nil, true
		}
		return nil, true
	case viewResult:
		return a.handleResultKey(msg)
	case viewChain:
		return a.handleChainKey(msg)
	case viewError:
		return a.handleErrorKey(msg)
	case viewManage:
		return a.handleManageKey(msg)
	case viewHelp:
		if key.Matches(msg, keys.Quit) || key.Matches(msg, keys.Help) {
			a.view = viewWelcome
		}
		return nil, true
	}
	return nil, false
}

func (a *App) quit() {
	a.quitting = true
	a.cancel()
}

func (a *App) handleWelcomeKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		if a.state.input.Focused() && a.state.input.Value() != "" {
			a.state.input.Reset()
			return nil, true
		}
		a.quit()
		return tea.Quit, true

	case key.Matches(msg, keys.Tab):
		if a.state.input.Focused() {
			a.state.input.Blur()
		} else {
			a.state.input.Focus()
		}
		return nil, true

	case key.Matches(msg, keys.Run):
		return a.runSelected(), true
	}

	if a.state.input.Focused() {
		return nil, false
	}

	switch {
	case key.Matches(msg, keys.Up):
		a.movePicker(-1)
	case key.Matches(msg, keys.Down):
		a.movePicker(1)
	case key.Matches(msg, keys.Enter):
		return a.runSelected(), true
	case key.Matches(msg, keys.Manage):
		a.view = viewManage
		return a.loadManage(), true
	case key.Matches(msg, keys.Setup):
		a.openSetup()
		return textinput.Blink, true
	case key.Matches(msg, keys.Help):
		a.view = viewHelp
	}
	return nil, true
}

// runSelected runs the highlighted menu item on the input text.
func (a *App) runSelected() tea.Cmd {
	item, ok := a.selectedItem()
	if !ok {
		return nil
	}
	if item.ID == promptlet.ManageID {
		a.view = viewManage
		return a.loadManage()
	}

	input := strings.TrimSpace(a.state.input.Value())
	if input == "" {
		a.state.status = "Type or paste some text first"
		a.state.input.Focus()
		return nil
	}
	p, err := a.deps.Store.Get(a.ctx, item.ID)
	if err != nil {
		a.state.status = err.Error()
		return nil
	}
	return a.start(a.surface.Begin(p, input), p, input)
}

// start shows the processing view and runs the single executor call for
// request id.
func (a *App) start(id uint64, p promptlet.Promptlet, input string) tea.Cmd {
	a.state.status = ""
	a.state.rendered = ""
	a.view = viewProcessing
	return tea.Batch(a.state.spinner.Tick, a.execute(id, p, input))
}

func (a *App) execute(id uint64, p promptlet.Promptlet, input string) tea.Cmd {
	return func() tea.Msg {
		res, err := a.deps.Executor.Execute(a.ctx, p, input)
		return resultMsg{id: id, result: res, err: err}
	}
}

func (a *App) handleResult(msg resultMsg) {
	if !a.surface.Finish(msg.id, msg.result, msg.err) {
		a.log.Debug("dropping stale result", zap.Uint64("request", msg.id))
		return
	}
	st := a.surface.Snapshot()
	if st.Phase == surface.Failed {
		a.view = viewError
		return
	}
	a.view = viewResult
	a.refreshOutput()
}

func (a *App) handleHandoff(h dispatch.Handoff) tea.Cmd {
	if a.state.seen[h.ID] {
		return nil
	}
	a.state.seen[h.ID] = true

	p, err := a.deps.Store.Get(a.ctx, h.Promptlet)
	if err != nil {
		a.log.Warn("hand-off names unknown promptlet", zap.String("promptlet", h.Promptlet), zap.Error(err))
		a.state.status = err.Error()
		return nil
	}
	a.log.Debug("hand-off received", zap.String("id", h.ID), zap.String("promptlet", p.Name))
	a.state.input.SetValue(h.Text)
	return a.start(a.surface.Begin(p, h.Text), p, h.Text)
}

// awaitHandoff picks up the hand-off that opened the panel, if any.
func (a *App) awaitHandoff() tea.Cmd {
	return func() tea.Msg {
		if a.deps.Mailbox == nil {
			return nil
		}
		h, err := a.deps.Mailbox.Await(a.ctx)
		if err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			return errMsg{err}
		}
		return handoffMsg{handoff: h, direct: true}
	}
}

func (a *App) listenHandoff() tea.Cmd {
	return func() tea.Msg {
		h, err := a.deps.Mailbox.Listen(a.ctx)
		if err != nil {
			return nil
		}
		return handoffMsg{handoff: h, direct: true}
	}
}

// takeHandoff reads a hand-off left in storage by another process.
func (a *App) takeHandoff() tea.Cmd {
	return func() tea.Msg {
		if a.deps.Mailbox == nil {
			return nil
		}
		h, err := a.deps.Mailbox.Take(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		if h == nil {
			return nil
		}
		return handoffMsg{handoff: h}
	}
}

func (a *App) rebuildMenu() tea.Cmd {
	return func() tea.Msg {
		if a.deps.Menu == nil {
			return nil
		}
		if err := a.deps.Menu.Rebuild(a.ctx); err != nil {
			return errMsg{err}
		}
		return menuItemsMsg{items: a.deps.Menu.Items()}
	}
}

func (a *App) waitMenu() tea.Cmd {
	return func() tea.Msg {
		select {
		case items := <-a.menuChanged:
			return menuChangedMsg{items: items}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) waitStorage() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.storageChanged:
			return storageChangedMsg{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) selectedItem() (menu.Item, bool) {
	if a.state.picker < 0 || a.state.picker >= len(a.state.items) {
		return menu.Item{}, false
	}
	return a.state.items[a.state.picker], true
}

func (a *App) movePicker(delta int) {
	n := len(a.state.items)
	if n == 0 {
		return
	}
	i := a.state.picker
	for {
		i += delta
		if i < 0 || i >= n {
			return
		}
		if !a.state.items[i].Separator {
			a.state.picker = i
			return
		}
	}
}

func (a *App) clampPicker() {
	if a.state.picker >= len(a.state.items) {
		a.state.picker = len(a.state.items) - 1
	}
	if a.state.picker < 0 {
		a.state.picker = 0
	}
	if item, ok := a.selectedItem(); ok && item.Separator {
		a.movePicker(1)
	}
}

func (a *App) resize() {
	w := min(80, a.width-4)
	if w < 20 {
		w = 20
	}
	a.state.input.SetWidth(w - 4)
	a.state.selection.SetWidth(w - 4)
	a.state.output.Width = w
	a.state.output.Height = max(5, a.height-12)
	if a.view == viewResult {
		a.refreshOutput()
	}
}

type setupCompleteMsg struct{}
type setupErrorMsg struct{ error }
type providerReadyMsg struct{}
type providerErrorMsg struct{ error }
type errMsg struct{ error }

type menuItemsMsg struct{ items []menu.Item }
type menuChangedMsg struct{ items []menu.Item }
type storageChangedMsg struct{}

type handoffMsg struct {
	handoff *dispatch.Handoff
	direct  bool
}

type resultMsg struct {
	id     uint64
	result *executor.Result
	err    error
}

type copiedMsg struct{ err error }

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	switch a.view {
	case viewSetup:
		return a.renderSetup()
	case viewProcessing:
		return a.renderProcessing()
	case viewResult:
		return a.renderResult()
	case viewChain:
		return a.renderChain()
	case viewError:
		return a.renderError()
	case viewManage:
		return a.renderManage()
	case viewHelp:
		return a.renderHelp()
	default:
		return a.renderWelcome()
	}
}

// errorOf unwraps the surface error for display.
func (a *App) errorOf() error {
	if err := a.surface.Snapshot().Err; err != nil {
		return err
	}
	if a.state.providerError != nil {
		return a.state.providerError
	}
	return errors.New("unknown error")
}
