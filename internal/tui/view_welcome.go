package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptit/internal/menu"
)

const logo = `
 ___                     _   ___ _   _
| _ \_ _ ___ _ __  _ __ | |_|_ _| |_| |
|  _/ '_/ _ \ '  \| '_ \|  _|| ||  _|_|
|_| |_| \___/_|_|_| .__/ \__|___|\__(_)
                  |_|
`

func (a *App) renderWelcome() string {
	var b strings.Builder
	boxWidth := min(80, a.width-4)

	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleLogo.Render(logo)))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSubtitle.Render(menu.Title)))
	b.WriteString("\n\n")

	// Promptlet picker
	var lines []string
	for i, item := range a.state.items {
		if item.Separator {
			lines = append(lines, styleSubtitle.Render(strings.Repeat("─", 24)))
			continue
		}
		if i == a.state.picker {
			lines = append(lines, styleSelected.Render("> "+item.Label))
			continue
		}
		lines = append(lines, "  "+item.Label)
	}
	if len(lines) == 0 {
		lines = append(lines, styleSubtitle.Render("Loading promptlets..."))
	}
	pickerBox := styleBox.Copy().Width(boxWidth)
	if !a.state.input.Focused() {
		pickerBox = pickerBox.BorderForeground(colorSecondary)
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, pickerBox.Render(strings.Join(lines, "\n"))))
	b.WriteString("\n")

	if item, ok := a.selectedItem(); ok && item.Tooltip != "" {
		tip := styleSubtitle.Render(truncate(item.Tooltip, boxWidth))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, tip))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Input
	inputBox := styleBox.Copy().Width(boxWidth)
	if a.state.input.Focused() {
		inputBox = inputBox.BorderForeground(colorSecondary)
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, inputBox.Render(a.state.input.View())))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, a.statusLine()))

	return a.centerVertically(b.String())
}

// statusLine shows the last status message, the provider state and the key
// hints.
func (a *App) statusLine() string {
	var parts []string
	switch {
	case a.state.status != "":
		parts = append(parts, styleSelected.Render(a.state.status))
	case a.state.providerError != nil:
		parts = append(parts, lipgloss.NewStyle().Foreground(colorError).Render(truncate(a.state.providerError.Error(), 60)))
	case a.state.providerReady:
		parts = append(parts, styleSuccess.Render(a.deps.Config.Provider+" ready"))
	}
	parts = append(parts, styleStatusBar.Render("[Tab] Focus  [Ctrl+R] Run  [m] Manage  [s] Setup  [?] Help  [Esc] Quit"))
	return strings.Join(parts, "\n")
}
