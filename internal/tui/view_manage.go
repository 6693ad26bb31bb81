package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptit/internal/promptlet"
)

type manageLoadedMsg struct {
	list   []promptlet.Promptlet
	focus  string
	status string
	err    error
}

func (a *App) loadManage() tea.Cmd {
	return a.manageOp("", func() (string, string, error) { return "", "", nil })
}

// manageOp runs op against the store and reloads the list. op returns the
// name to keep the cursor on and a status message.
func (a *App) manageOp(focus string, op func() (string, string, error)) tea.Cmd {
	return func() tea.Msg {
		name, status, err := op()
		if name != "" {
			focus = name
		}
		list, listErr := a.deps.Store.List(a.ctx)
		if err == nil {
			err = listErr
		}
		return manageLoadedMsg{list: list, focus: focus, status: status, err: err}
	}
}

func (a *App) handleManageLoaded(msg manageLoadedMsg) {
	if msg.list != nil {
		a.state.manageList = msg.list
	}
	if msg.focus != "" {
		for i, p := range a.state.manageList {
			if p.Name == msg.focus {
				a.state.manageCursor = i
			}
		}
	}
	if a.state.manageCursor >= len(a.state.manageList) {
		a.state.manageCursor = max(0, len(a.state.manageList)-1)
	}
	a.state.status = msg.status
	if msg.err != nil {
		a.state.status = msg.err.Error()
	}
}

func (a *App) managed() (promptlet.Promptlet, bool) {
	if a.state.manageCursor < 0 || a.state.manageCursor >= len(a.state.manageList) {
		return promptlet.Promptlet{}, false
	}
	return a.state.manageList[a.state.manageCursor], true
}

func (a *App) handleManageKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	confirming := a.state.confirmDelete
	a.state.confirmDelete = false

	if key.Matches(msg, keys.Quit) {
		a.state.status = ""
		a.view = viewWelcome
		return nil, true
	}

	p, ok := a.managed()
	if !ok {
		if key.Matches(msg, keys.Reset) {
			return a.resetDefaults(), true
		}
		return nil, true
	}
	store := a.deps.Store

	switch {
	case key.Matches(msg, keys.MoveUp):
		return a.manageOp(p.Name, func() (string, string, error) {
			return "", "", store.Move(a.ctx, p.Name, p.Index()-1)
		}), true
	case key.Matches(msg, keys.MoveDown):
		return a.manageOp(p.Name, func() (string, string, error) {
			return "", "", store.Move(a.ctx, p.Name, p.Index()+1)
		}), true
	case key.Matches(msg, keys.Up):
		if a.state.manageCursor > 0 {
			a.state.manageCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.state.manageCursor < len(a.state.manageList)-1 {
			a.state.manageCursor++
		}
	case key.Matches(msg, keys.Toggle):
		return a.manageOp(p.Name, func() (string, string, error) {
			verb := "shown"
			if p.IsActive {
				verb = "hidden"
			}
			return "", fmt.Sprintf("%s %s", p.Name, verb), store.SetActive(a.ctx, p.Name, !p.IsActive)
		}), true
	case key.Matches(msg, keys.Clone):
		return a.manageOp(p.Name, func() (string, string, error) {
			c, err := store.Clone(a.ctx, p.Name)
			return c.Name, "Created " + c.Name, err
		}), true
	case key.Matches(msg, keys.Delete):
		if p.IsDefault {
			a.state.status = "Bundled promptlets can be hidden but not deleted"
			return nil, true
		}
		if !confirming {
			a.state.confirmDelete = true
			a.state.status = fmt.Sprintf("Press d again to delete %s", p.Name)
			return nil, true
		}
		return a.manageOp("", func() (string, string, error) {
			return "", "Deleted " + p.Name, store.Delete(a.ctx, p.Name)
		}), true
	case key.Matches(msg, keys.Reset):
		return a.resetDefaults(), true
	case key.Matches(msg, keys.Help):
		a.view = viewHelp
	}
	return nil, true
}

func (a *App) resetDefaults() tea.Cmd {
	return a.manageOp("", func() (string, string, error) {
		_, err := a.deps.Store.ResetDefaults(a.ctx)
		return "", "Bundled promptlets restored", err
	})
}

func (a *App) renderManage() string {
	var b strings.Builder

	title := styleTitle.Render("Manage Promptlets")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	var lines []string
	lastDefault := true
	for i, p := range a.state.manageList {
		if i == 0 && p.IsDefault {
			lines = append(lines, styleSubtitle.Render("Bundled"))
		}
		if !p.IsDefault && lastDefault {
			if i > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, styleSubtitle.Render("Custom"))
		}
		lastDefault = p.IsDefault

		label := fmt.Sprintf("%-30s %s", truncate(p.Label(), 30), styleSubtitle.Render(p.Model))
		style := lipgloss.NewStyle()
		if !p.IsActive {
			style = styleInactive
		}
		cursor := "  "
		if i == a.state.manageCursor {
			cursor = "> "
			style = style.Inherit(styleSelected)
		}
		lines = append(lines, cursor+style.Render(label))
	}
	if len(lines) == 0 {
		lines = append(lines, styleSubtitle.Render("No promptlets"))
	}

	box := styleBox.Copy().
		Width(min(70, a.width-4)).
		Render(strings.Join(lines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, box))
	b.WriteString("\n\n")

	if p, ok := a.managed(); ok {
		tip := styleSubtitle.Render(truncate(p.Tooltip(), min(70, a.width-4)))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, tip))
		b.WriteString("\n")
	}
	if a.state.status != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSelected.Render(a.state.status)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	status := styleStatusBar.Render("[space] Show/Hide  [K/J] Move  [c] Clone  [d] Delete  [R] Reset  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
