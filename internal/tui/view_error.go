package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/llm"
	"github.com/sant0-9/promptit/internal/promptlet"
)

func (a *App) handleErrorKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Retry):
		id, p, input, err := a.surface.Retry()
		if err != nil {
			return nil, true
		}
		return a.start(id, p, input), true
	case key.Matches(msg, keys.Setup):
		a.openSetup()
		return textinput.Blink, true
	case key.Matches(msg, keys.Quit), key.Matches(msg, keys.New):
		a.surface.Reset()
		a.view = viewWelcome
		a.state.input.Focus()
		return nil, true
	}
	return nil, true
}

// suggestions maps an error to next steps for the user.
func suggestions(err error) []string {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, executor.ErrMissingCredential):
		return []string{
			"Set it with: promptit key set",
			"Or press [s] to run setup",
		}
	case errors.Is(err, promptlet.ErrNotFound):
		return []string{"Check the promptlet name with: promptit list"}
	case errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403):
		return []string{
			"Your API key was rejected",
			"Replace it with: promptit key set",
		}
	case errors.As(err, &apiErr) && apiErr.StatusCode == 429:
		return []string{
			"You've hit the API rate limit",
			"Wait a moment and press [r] to retry",
		}
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "timed out") || strings.Contains(errLower, "timeout"):
		return []string{
			"The request took too long",
			"Raise timeout in ~/.config/promptit/config.yaml or retry with [r]",
		}
	case strings.Contains(errLower, "ollama"):
		return []string{
			"Make sure Ollama is running: ollama serve",
			"Or switch to a cloud provider in setup",
		}
	case strings.Contains(errLower, "connection") || strings.Contains(errLower, "connect"):
		return []string{"Check your internet connection"}
	case strings.Contains(errLower, "model"):
		return []string{"Check the promptlet's model with: promptit models"}
	}
	return nil
}

func (a *App) renderError() string {
	var b strings.Builder
	err := a.errorOf()

	title := lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Render("Something went wrong")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	if name := a.surface.Snapshot().Promptlet.Name; name != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSubtitle.Render(name)))
		b.WriteString("\n\n")
	}

	errBox := styleBox.Copy().
		Width(min(60, a.width-4)).
		BorderForeground(colorError).
		Render(err.Error())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, errBox))
	b.WriteString("\n\n")

	if s := suggestions(err); len(s) > 0 {
		suggBox := styleBox.Copy().
			Width(min(60, a.width-4)).
			BorderForeground(colorMuted).
			Render("Suggestions:\n" + strings.Join(s, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, suggBox))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[r] Retry  [s] Setup  [n] New  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
