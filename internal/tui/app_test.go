package tui

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/dispatch"
	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/llm"
	"github.com/sant0-9/promptit/internal/menu"
	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/storage"
	"github.com/sant0-9/promptit/internal/surface"
)

type echoProvider struct {
	calls []string
	err   error
}

func (e *echoProvider) Name() string                   { return "echo" }
func (e *echoProvider) Ping(ctx context.Context) error { return nil }

func (e *echoProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	user := req.Messages[len(req.Messages)-1].Content
	e.calls = append(e.calls, user)
	if e.err != nil {
		return nil, e.err
	}
	return &llm.CompletionResponse{
		Content: "Main Output:\nout(" + user + ")",
		Usage:   &llm.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5},
	}, nil
}

type fixture struct {
	app      *App
	kv       *storage.Memory
	store    *promptlet.Store
	provider *echoProvider
}

func newFixture(t *testing.T, maxDepth int) *fixture {
	t.Helper()
	ctx := context.Background()
	kv := storage.NewMemory()
	if err := executor.SaveAPIKey(ctx, kv, "sk-test"); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.SystemPrompt = false
	cfg.MaxChainDepth = maxDepth

	store := promptlet.NewStore(kv, nil, cfg.Model)
	creds := executor.StoredCredential{KV: kv}
	provider := &echoProvider{}
	exec := executor.New(cfg, creds, nil).WithProvider(func(*config.Config, string) (llm.Provider, error) {
		return provider, nil
	})
	m := menu.New(store, nil)
	if err := m.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	app := NewApp(ctx, Deps{
		Config:     cfg,
		ConfigPath: t.TempDir() + "/config.yaml",
		KV:         kv,
		Store:      store,
		Executor:   exec,
		Creds:      creds,
		Mailbox:    dispatch.NewMailbox(kv, 10*time.Millisecond, nil),
		Menu:       m,
	})
	t.Cleanup(app.Close)
	app.state.input.Focus()
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app.Update(menuItemsMsg{items: m.Items()})
	return &fixture{app: app, kv: kv, store: store, provider: provider}
}

// run executes cmd and every command it batches, feeding the app's own
// messages back into it. Cursor blinks and spinner ticks are dropped, as
// are commands that block on watchers.
func (f *fixture) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(100 * time.Millisecond):
		return
	}

	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			f.run(c)
		}
	case resultMsg, copiedMsg, manageLoadedMsg, handoffMsg, menuItemsMsg, menuChangedMsg, storageChangedMsg, errMsg:
		_, next := f.app.Update(msg)
		f.run(next)
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (f *fixture) press(s string) {
	_, cmd := f.app.Update(keyPress(s))
	f.run(cmd)
}

func TestRunSelectedPromptlet(t *testing.T) {
	f := newFixture(t, 10)

	f.app.state.input.SetValue("some text")
	f.press("ctrl+r")

	if f.app.view != viewResult {
		t.Fatalf("view = %d, want result; status %q", f.app.view, f.app.state.status)
	}
	st := f.app.surface.Snapshot()
	if st.Phase != surface.Done || st.Promptlet.Name != "Summarise" {
		t.Errorf("surface = %v %q", st.Phase, st.Promptlet.Name)
	}
	if len(f.provider.calls) != 1 || !strings.HasSuffix(f.provider.calls[0], "\n\nsome text") {
		t.Errorf("calls = %q", f.provider.calls)
	}
	if got := usageLine(st.Result); !strings.Contains(got, "Tokens: 5 (In: 3 | Out: 2)") {
		t.Errorf("usageLine() = %q", got)
	}
}

func TestRunNeedsInput(t *testing.T) {
	f := newFixture(t, 10)
	f.press("ctrl+r")

	if f.app.view != viewWelcome || len(f.provider.calls) != 0 {
		t.Errorf("view = %d, calls = %d", f.app.view, len(f.provider.calls))
	}
	if f.app.state.status == "" {
		t.Error("no status shown for empty input")
	}
}

func TestPickerSkipsSeparator(t *testing.T) {
	f := newFixture(t, 10)
	f.press("tab") // focus the list

	for range len(f.app.state.items) {
		f.press("down")
		if item, _ := f.app.selectedItem(); item.Separator {
			t.Fatal("cursor landed on the separator")
		}
	}
	if item, _ := f.app.selectedItem(); item.ID != promptlet.ManageID {
		t.Errorf("last item = %q, want manage action", item.ID)
	}

	f.press("enter")
	if f.app.view != viewManage || len(f.app.state.manageList) == 0 {
		t.Errorf("manage action opened view %d with %d promptlets", f.app.view, len(f.app.state.manageList))
	}
}

func TestMissingCredentialShowsError(t *testing.T) {
	f := newFixture(t, 10)
	if err := executor.SaveAPIKey(context.Background(), f.kv, ""); err != nil {
		t.Fatal(err)
	}

	f.app.state.input.SetValue("text")
	f.press("ctrl+r")

	if f.app.view != viewError {
		t.Fatalf("view = %d, want error", f.app.view)
	}
	if err := f.app.errorOf(); !errors.Is(err, executor.ErrMissingCredential) {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(f.app.renderError(), "promptit key set") {
		t.Error("error view does not suggest setting the key")
	}
}

func TestRetryAfterFailure(t *testing.T) {
	f := newFixture(t, 10)
	f.provider.err = &llm.APIError{StatusCode: 500, Message: "API error: 500 Internal Server Error"}

	f.app.state.input.SetValue("text")
	f.press("ctrl+r")
	if f.app.view != viewError {
		t.Fatalf("view = %d, want error", f.app.view)
	}

	f.provider.err = nil
	f.press("r")
	if f.app.view != viewResult || len(f.provider.calls) != 2 {
		t.Errorf("after retry view = %d, calls = %d", f.app.view, len(f.provider.calls))
	}
}

func TestStaleResultIgnored(t *testing.T) {
	f := newFixture(t, 10)
	p, _ := f.store.Get(context.Background(), "Summarise")
	old := f.app.surface.Begin(p, "a")
	current := f.app.surface.Begin(p, "b")

	f.app.Update(resultMsg{id: old, result: &executor.Result{Text: "old"}})
	if f.app.surface.Snapshot().Phase != surface.Processing {
		t.Fatal("stale result finished the invocation")
	}
	f.app.Update(resultMsg{id: current, result: &executor.Result{Text: "new"}})
	if st := f.app.surface.Snapshot(); st.Result == nil || st.Result.Text != "new" {
		t.Errorf("result = %+v", st.Result)
	}
}

func TestHandoffRunsOnce(t *testing.T) {
	f := newFixture(t, 10)
	h := &dispatch.Handoff{ID: "h-1", Promptlet: "rephrase", Text: "hello"}

	_, cmd := f.app.Update(handoffMsg{handoff: h})
	f.run(cmd)
	_, cmd = f.app.Update(handoffMsg{handoff: h})
	if cmd != nil {
		t.Error("second delivery of the same hand-off started a request")
	}

	if len(f.provider.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(f.provider.calls))
	}
	if st := f.app.surface.Snapshot(); st.Promptlet.Name != "Rephrase" || st.Input != "hello" {
		t.Errorf("surface = %q %q", st.Promptlet.Name, st.Input)
	}
}

func TestHandoffFromStorage(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	h := dispatch.Handoff{ID: "h-2", Promptlet: "Verify", Text: "claim"}
	if err := f.kv.Set(ctx, map[string]any{storage.KeyPendingPromptlet: h}); err != nil {
		t.Fatal(err)
	}

	f.run(f.app.takeHandoff())

	if len(f.provider.calls) != 1 || f.app.view != viewResult {
		t.Errorf("calls = %d, view = %d", len(f.provider.calls), f.app.view)
	}
	got, _ := f.kv.Get(ctx, storage.KeyPendingPromptlet)
	if len(got) != 0 {
		t.Error("hand-off record left in storage")
	}
}

func TestMenuFollowsStoreWrites(t *testing.T) {
	f := newFixture(t, 10)
	m := f.app.deps.Menu

	var rebuilds atomic.Int32
	m.OnChange(func([]menu.Item) { rebuilds.Add(1) })
	stop := m.Watch(f.app.ctx, f.kv)
	defer stop()

	if err := f.store.SetActive(context.Background(), "Summarise", false); err != nil {
		t.Fatal(err)
	}
	f.run(f.app.waitMenu())

	if got := rebuilds.Load(); got != 1 {
		t.Errorf("rebuilds = %d, want 1 for one write", got)
	}
	if len(f.app.state.items) == 0 || f.app.state.items[0].ID != "promptlet_0_Rephrase" {
		t.Fatalf("picker items not refreshed: %v", f.app.state.items)
	}
	for _, item := range f.app.state.items {
		if strings.Contains(item.Label, "Summarise") {
			t.Errorf("hidden promptlet still in picker: %q", item.ID)
		}
	}
}

func TestMenuChangeDoesNotRebuild(t *testing.T) {
	f := newFixture(t, 10)

	var rebuilds atomic.Int32
	f.app.deps.Menu.OnChange(func([]menu.Item) { rebuilds.Add(1) })

	items := f.app.deps.Menu.Items()[1:]
	_, cmd := f.app.Update(menuChangedMsg{items: items})
	f.run(cmd)

	if got := rebuilds.Load(); got != 0 {
		t.Errorf("rebuilds = %d after a menu change message, want 0", got)
	}
	if diff := cmp.Diff(items, f.app.state.items); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestStorageChangeRebuildsOnce(t *testing.T) {
	f := newFixture(t, 10)

	var rebuilds atomic.Int32
	f.app.deps.Menu.OnChange(func([]menu.Item) { rebuilds.Add(1) })

	_, cmd := f.app.Update(storageChangedMsg{})
	f.run(cmd)

	if got := rebuilds.Load(); got != 1 {
		t.Errorf("rebuilds = %d after one storage change, want 1", got)
	}
}

func TestChainUsesSelectionAndCapsDepth(t *testing.T) {
	f := newFixture(t, 2)

	f.app.state.input.SetValue("text")
	f.press("ctrl+r")
	f.press("p")
	if f.app.view != viewChain {
		t.Fatalf("view = %d, want chain", f.app.view)
	}

	f.app.state.chainFilter.SetValue("rephr")
	f.app.state.chainMatches = filterPromptlets(f.app.state.chainChoices, "rephr")
	f.app.state.selection.SetValue("  picked part  ")
	f.press("enter")

	if f.app.view != viewResult {
		t.Fatalf("view = %d, want result; status %q", f.app.view, f.app.state.status)
	}
	if last := f.provider.calls[len(f.provider.calls)-1]; !strings.HasSuffix(last, "\n\npicked part") {
		t.Errorf("chained input = %q", last)
	}
	st := f.app.surface.Snapshot()
	if diff := cmp.Diff([]string{"Summarise"}, stepNames(st.History)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	f.press("p")
	if f.app.view != viewResult || !strings.Contains(f.app.state.status, "depth") {
		t.Errorf("chain past the cap: view = %d, status = %q", f.app.view, f.app.state.status)
	}
}

func stepNames(steps []surface.Step) []string {
	var names []string
	for _, s := range steps {
		names = append(names, s.Promptlet)
	}
	return names
}

func TestCopyOutput(t *testing.T) {
	f := newFixture(t, 10)
	var copied string
	clipboardWriteAll = func(s string) error {
		copied = s
		return nil
	}
	orig := clipboardWriteAll
	t.Cleanup(func() { clipboardWriteAll = orig })

	f.app.state.input.SetValue("text")
	f.press("ctrl+r")
	f.press("c")

	if !strings.HasPrefix(copied, "Main Output:\nout(") || !strings.HasSuffix(copied, "\n\ntext)") {
		t.Errorf("copied %q", copied)
	}
	if f.app.state.status != "Copied to clipboard" {
		t.Errorf("status = %q", f.app.state.status)
	}
}

func TestManageToggleAndDelete(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	if _, err := f.store.Upsert(ctx, promptlet.Promptlet{Name: "Mine", Prompt: "do it"}, ""); err != nil {
		t.Fatal(err)
	}

	f.run(f.app.loadManage())
	f.app.view = viewManage

	f.press(" ")
	first := f.app.state.manageList[0]
	if first.IsActive {
		t.Errorf("%s still active after toggle", first.Name)
	}

	// Bundled promptlets are never deleted.
	f.press("d")
	f.press("d")
	if _, err := f.store.Get(ctx, first.Name); err != nil {
		t.Errorf("bundled promptlet deleted: %v", err)
	}

	f.app.state.manageCursor = len(f.app.state.manageList) - 1
	f.press("d")
	if !f.app.state.confirmDelete {
		t.Fatal("delete did not ask for confirmation")
	}
	f.press("d")
	if _, err := f.store.Get(ctx, "Mine"); !errors.Is(err, promptlet.ErrNotFound) {
		t.Errorf("Get(Mine) after delete error = %v", err)
	}
}

func TestFilterPromptlets(t *testing.T) {
	ps := []promptlet.Promptlet{{Name: "Summarise"}, {Name: "Rephrase"}, {Name: "Recipe Creator"}}

	tests := []struct {
		pattern string
		want    []int
	}{
		{"", []int{0, 1, 2}},
		{"reph", []int{1}},
		{"zzz", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, filterPromptlets(ps, tt.pattern)); diff != "" {
				t.Errorf("filterPromptlets(%q) mismatch (-want +got):\n%s", tt.pattern, diff)
			}
		})
	}
}

func TestOutputMarkdown(t *testing.T) {
	got := outputMarkdown("Intro\nMain Output:\nBody\nNotes:\nA note")
	want := "Intro\n\n### Main Output\n\nBody\n\n### Notes\n\nA note"
	if got != want {
		t.Errorf("outputMarkdown() = %q, want %q", got, want)
	}
	if got := outputMarkdown("plain"); got != "plain" {
		t.Errorf("outputMarkdown(plain) = %q", got)
	}
}
