package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/surface"
)

// promptletNames adapts a promptlet list for fuzzy matching on names.
type promptletNames []promptlet.Promptlet

func (p promptletNames) String(i int) string { return p[i].Name }
func (p promptletNames) Len() int            { return len(p) }

// filterPromptlets returns the indices of ps matching pattern, best match
// first. An empty pattern keeps store order.
func filterPromptlets(ps []promptlet.Promptlet, pattern string) []int {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		idx := make([]int, len(ps))
		for i := range ps {
			idx[i] = i
		}
		return idx
	}
	matches := fuzzy.FindFrom(pattern, promptletNames(ps))
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	return idx
}

func (a *App) openChain() tea.Cmd {
	if limit := a.deps.Config.MaxChainDepth; limit > 0 && a.surface.Depth() >= limit {
		a.state.status = surface.ErrChainDepth.Error()
		return nil
	}
	active, err := a.deps.Store.Active(a.ctx)
	if err != nil {
		a.state.status = err.Error()
		return nil
	}

	a.state.status = ""
	a.state.chainChoices = active
	a.state.chainCursor = 0
	a.state.chainFilter.Reset()
	a.state.selection.Reset()
	a.state.selection.Blur()
	a.state.chainMatches = filterPromptlets(active, "")
	a.view = viewChain
	return a.state.chainFilter.Focus()
}

func (a *App) handleChainKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		a.view = viewResult
		return nil, true
	case key.Matches(msg, keys.Tab):
		if a.state.chainFilter.Focused() {
			a.state.chainFilter.Blur()
			return a.state.selection.Focus(), true
		}
		a.state.selection.Blur()
		return a.state.chainFilter.Focus(), true
	case key.Matches(msg, keys.Run):
		return a.runChain(), true
	}

	if !a.state.chainFilter.Focused() {
		return nil, false
	}
	switch msg.String() {
	case "up":
		if a.state.chainCursor > 0 {
			a.state.chainCursor--
		}
		return nil, true
	case "down":
		if a.state.chainCursor < len(a.state.chainMatches)-1 {
			a.state.chainCursor++
		}
		return nil, true
	case "enter":
		return a.runChain(), true
	}
	return nil, false
}

// updateChainInputs feeds a message to whichever chain input has focus and
// re-filters the choices.
func (a *App) updateChainInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if a.state.selection.Focused() {
		a.state.selection, cmd = a.state.selection.Update(msg)
		return cmd
	}
	before := a.state.chainFilter.Value()
	a.state.chainFilter, cmd = a.state.chainFilter.Update(msg)
	if a.state.chainFilter.Value() != before {
		a.state.chainMatches = filterPromptlets(a.state.chainChoices, a.state.chainFilter.Value())
		a.state.chainCursor = 0
	}
	return cmd
}

func (a *App) runChain() tea.Cmd {
	if a.state.chainCursor >= len(a.state.chainMatches) {
		return nil
	}
	p := a.state.chainChoices[a.state.chainMatches[a.state.chainCursor]]

	id, input, err := a.surface.Chain(p, a.state.selection.Value())
	if err != nil {
		a.state.status = err.Error()
		if errors.Is(err, surface.ErrChainDepth) || errors.Is(err, surface.ErrNothingToChain) {
			a.view = viewResult
		}
		return nil
	}
	return a.start(id, p, input)
}

func (a *App) renderChain() string {
	var b strings.Builder
	boxWidth := min(80, a.width-4)
	st := a.surface.Snapshot()

	title := styleTitle.Render("Chain another promptlet")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, a.renderChainTrail(st.History, st.Promptlet.Name)))
	b.WriteString("\n\n")

	filterBox := styleBox.Copy().Width(boxWidth)
	if a.state.chainFilter.Focused() {
		filterBox = filterBox.BorderForeground(colorSecondary)
	}
	var lines []string
	lines = append(lines, a.state.chainFilter.View(), "")
	for i, idx := range a.state.chainMatches {
		label := a.state.chainChoices[idx].Label()
		if i == a.state.chainCursor {
			lines = append(lines, styleSelected.Render("> "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	if len(a.state.chainMatches) == 0 {
		lines = append(lines, styleSubtitle.Render("  no match"))
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, filterBox.Render(strings.Join(lines, "\n"))))
	b.WriteString("\n\n")

	selBox := styleBox.Copy().Width(boxWidth)
	if a.state.selection.Focused() {
		selBox = selBox.BorderForeground(colorSecondary)
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, selBox.Render(a.state.selection.View())))
	b.WriteString("\n\n")

	if a.state.status != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSelected.Render(a.state.status)))
		b.WriteString("\n")
	}
	status := styleStatusBar.Render("[Enter] Run  [Tab] Selection  [Ctrl+R] Run  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
