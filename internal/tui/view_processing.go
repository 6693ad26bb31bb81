package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderProcessing() string {
	var b strings.Builder
	st := a.surface.Snapshot()

	title := styleTitle.Render(st.Promptlet.Label())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	if len(st.History) > 0 {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, a.renderChainTrail(st.History, st.Promptlet.Name)))
		b.WriteString("\n\n")
	}

	line := fmt.Sprintf("%s Processing...  ~%d tokens sent", a.state.spinner.View(),
		estimateTokens(st.Promptlet.Prompt+"\n\n"+st.Input))
	box := styleBox.Copy().
		Width(min(60, a.width-4)).
		BorderForeground(colorSecondary).
		Render(line)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, box))
	b.WriteString("\n\n")

	preview := styleSubtitle.Render("> " + truncate(strings.Join(strings.Fields(st.Input), " "), 60))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, preview))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleStatusBar.Render("[Esc] Cancel")))

	return a.centerVertically(b.String())
}
