package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderHelp() string {
	var b strings.Builder

	title := styleTitle.Render("Help")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	sections := []struct {
		name  string
		lines []string
	}{
		{"Picker", []string{
			"  Tab            Switch between list and text",
			"  up/down        Choose a promptlet",
			"  Enter/Ctrl+R   Run it on the text",
			"  m              Manage promptlets",
			"  s              Provider and API key setup",
		}},
		{"Result", []string{
			"  c              Copy output to clipboard",
			"  p              Chain another promptlet",
			"  n              Start over with new text",
			"  r              Retry after an error",
		}},
		{"Manage", []string{
			"  space          Show or hide in the menu",
			"  K / J          Move up or down",
			"  c / d          Clone / delete (custom only)",
			"  R              Reset bundled promptlets",
		}},
	}

	for _, s := range sections {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSubtitle.Render(s.name)))
		b.WriteString("\n")
		box := styleBox.Copy().
			Width(50).
			Render(strings.Join(s.lines, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, box))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleStatusBar.Render("[Esc] Back")))

	return a.centerVertically(b.String())
}
