package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/executor"
)

func (a *App) openSetup() {
	a.view = viewSetup
	a.state.setupStep = 0
	a.state.setupError = nil
	a.state.apiKeyInput.Reset()
	for i, p := range config.Providers {
		if p.ID == a.deps.Config.Provider {
			a.state.selectedProvider = i
		}
	}
}

func (a *App) handleSetupKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch a.state.setupStep {
	case 0: // Provider selection
		switch {
		case key.Matches(msg, keys.Quit):
			if a.deps.NeedsSetup {
				a.quit()
				return tea.Quit, true
			}
			a.view = viewWelcome
		case key.Matches(msg, keys.Up):
			if a.state.selectedProvider > 0 {
				a.state.selectedProvider--
			}
		case key.Matches(msg, keys.Down):
			if a.state.selectedProvider < len(config.Providers)-1 {
				a.state.selectedProvider++
			}
		case key.Matches(msg, keys.Enter):
			provider := config.Providers[a.state.selectedProvider]
			if provider.ID != a.deps.Config.Provider {
				a.deps.Config.Model = provider.DefaultModel
			}
			a.deps.Config.Provider = provider.ID

			if provider.NeedsAPIKey {
				a.state.setupStep = 1
				return tea.Batch(a.state.apiKeyInput.Focus(), textinput.Blink), true
			}
			return a.finishSetup(""), true
		}
		return nil, true

	case 1: // API key entry
		switch {
		case key.Matches(msg, keys.Quit):
			a.state.setupStep = 0
			a.state.apiKeyInput.Reset()
			return nil, true
		case key.Matches(msg, keys.Enter):
			k := strings.TrimSpace(a.state.apiKeyInput.Value())
			if k == "" {
				return nil, true
			}
			return a.finishSetup(k), true
		}
	}
	return nil, false
}

// finishSetup writes the config file and, when given, the API key.
func (a *App) finishSetup(apiKey string) tea.Cmd {
	return func() tea.Msg {
		if err := a.deps.Config.Save(a.deps.ConfigPath); err != nil {
			return setupErrorMsg{err}
		}
		if apiKey != "" {
			if err := executor.SaveAPIKey(a.ctx, a.deps.KV, apiKey); err != nil {
				return setupErrorMsg{err}
			}
		}
		a.deps.NeedsSetup = false
		return setupCompleteMsg{}
	}
}

func (a *App) renderSetup() string {
	var b strings.Builder

	header := styleLogo.Render(logo)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, header))
	b.WriteString("\n\n")

	switch a.state.setupStep {
	case 0:
		b.WriteString(a.renderProviderSelection())
	case 1:
		b.WriteString(a.renderAPIKeyEntry())
	}

	if a.state.setupError != nil {
		b.WriteString("\n\n")
		msg := lipgloss.NewStyle().Foreground(colorError).Render(a.state.setupError.Error())
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, msg))
	}

	return a.centerVertically(b.String())
}

func (a *App) renderProviderSelection() string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(colorWhite).
		Bold(true).
		Render("Choose your LLM provider:")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	var providerLines []string
	for i, p := range config.Providers {
		if i == a.state.selectedProvider {
			providerLines = append(providerLines,
				styleSelected.Render(fmt.Sprintf("> [x] %-12s %s", p.Name, p.Description)))
			continue
		}
		providerLines = append(providerLines,
			styleSubtitle.Render(fmt.Sprintf("  [ ] %-12s %s", p.Name, p.Description)))
	}

	providerBox := styleBox.Copy().
		Width(min(70, a.width-4)).
		Render(strings.Join(providerLines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, providerBox))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[j/k] Navigate  [Enter] Select  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return b.String()
}

func (a *App) renderAPIKeyEntry() string {
	var b strings.Builder

	provider := config.GetProvider(a.deps.Config.Provider)
	if provider == nil {
		provider = &config.ProviderInfo{ID: a.deps.Config.Provider, Name: a.deps.Config.Provider}
	}

	title := lipgloss.NewStyle().
		Foreground(colorWhite).
		Bold(true).
		Render(fmt.Sprintf("Enter your %s API key:", provider.Name))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	if provider.SignupURL != "" {
		link := styleSubtitle.Render(fmt.Sprintf("Get one at: %s", provider.SignupURL))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, link))
		b.WriteString("\n\n")
	}

	inputBox := styleBox.Copy().
		Width(60).
		BorderForeground(colorSecondary).
		Render(a.state.apiKeyInput.View())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, inputBox))
	b.WriteString("\n\n")

	hint := styleSubtitle.Render("Stored locally; PROMPTIT_API_KEY overrides it")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, hint))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Enter] Save  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return b.String()
}

func (a *App) centerVertically(content string) string {
	lines := strings.Count(content, "\n") + 1
	padding := (a.height - lines) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat("\n", padding) + content
}
