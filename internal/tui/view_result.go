package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptit/internal/surface"
)

var clipboardWriteAll = clipboard.WriteAll

// outputMarkdown lays the sections out as markdown, titled sections under
// their own heading.
func outputMarkdown(text string) string {
	var b strings.Builder
	for i, s := range surface.Sections(text) {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if s.Title != "" {
			b.WriteString("### " + s.Title + "\n\n")
		}
		b.WriteString(s.Body)
	}
	return b.String()
}

func (a *App) refreshOutput() {
	st := a.surface.Snapshot()
	if st.Result == nil {
		return
	}
	a.state.rendered = a.state.markdown.Render(outputMarkdown(st.Result.Text), a.state.output.Width)
	a.state.output.SetContent(a.state.rendered)
	a.state.output.GotoTop()
}

func (a *App) handleResultKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit), key.Matches(msg, keys.New):
		a.surface.Reset()
		a.state.input.Reset()
		a.state.input.Focus()
		a.view = viewWelcome
		return nil, true
	case key.Matches(msg, keys.Copy):
		return a.copyOutput(), true
	case key.Matches(msg, keys.Chain):
		return a.openChain(), true
	case key.Matches(msg, keys.Help):
		a.view = viewHelp
		return nil, true
	}
	// Scrolling falls through to the viewport.
	return nil, false
}

func (a *App) copyOutput() tea.Cmd {
	st := a.surface.Snapshot()
	if st.Result == nil {
		return nil
	}
	text := st.Result.Text
	return func() tea.Msg {
		return copiedMsg{err: clipboardWriteAll(text)}
	}
}

func (a *App) renderResult() string {
	var b strings.Builder
	st := a.surface.Snapshot()
	boxWidth := min(80, a.width-4)

	title := styleTitle.Render(st.Promptlet.Label())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n")
	if len(st.History) > 0 {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, a.renderChainTrail(st.History, st.Promptlet.Name)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	resultBox := styleBox.Copy().
		Width(boxWidth).
		BorderForeground(colorPrimary).
		Render(a.state.output.View())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, resultBox))
	b.WriteString("\n")

	if usage := usageLine(st.Result); usage != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSubtitle.Render(usage)))
		b.WriteString("\n")
	}
	if a.state.status != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSelected.Render(a.state.status)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	status := styleStatusBar.Render("[c] Copy  [p] Chain  [n] New  [up/down] Scroll  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

// renderChainTrail shows the promptlets applied so far, ending with the
// current one.
func (a *App) renderChainTrail(history []surface.Step, current string) string {
	names := make([]string, 0, len(history)+1)
	for _, s := range history {
		names = append(names, s.Promptlet)
	}
	names = append(names, current)
	trail := strings.Join(names, " → ")
	if limit := a.deps.Config.MaxChainDepth; limit > 0 {
		trail += styleSubtitle.Render(fmt.Sprintf("  (%d/%d)", len(names), limit))
	}
	return styleSubtitle.Render(trail)
}
