package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sant0-9/promptit/internal/menu"
	"github.com/sant0-9/promptit/internal/promptlet"
)

type state struct {
	// Setup wizard state
	setupStep        int
	selectedProvider int
	apiKeyInput      textinput.Model
	setupError       error

	// Picker
	items  []menu.Item
	picker int
	input  textarea.Model

	// Processing and result
	spinner  spinner.Model
	output   viewport.Model
	rendered string
	markdown *markdownRenderer

	// Chain picker
	chainFilter  textinput.Model
	selection    textarea.Model
	chainChoices []promptlet.Promptlet
	chainMatches []int
	chainCursor  int

	// Manage screen
	manageList    []promptlet.Promptlet
	manageCursor  int
	confirmDelete bool

	// Hand-off ids already run, so a hand-off seen on both channels runs once.
	seen map[string]bool

	status string

	providerReady bool
	providerError error
}

func newState() *state {
	input := textarea.New()
	input.Placeholder = "Paste the text to run a promptlet on..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetWidth(60)
	input.SetHeight(6)

	apiKey := textinput.New()
	apiKey.Placeholder = "Paste your API key here..."
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.CharLimit = 200
	apiKey.Width = 50

	filter := textinput.New()
	filter.Placeholder = "Filter promptlets..."
	filter.CharLimit = 60
	filter.Width = 40

	selection := textarea.New()
	selection.Placeholder = "Optional: paste the part of the output to chain on"
	selection.ShowLineNumbers = false
	selection.CharLimit = 0
	selection.SetWidth(60)
	selection.SetHeight(3)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styleSpinner

	return &state{
		input:       input,
		apiKeyInput: apiKey,
		chainFilter: filter,
		selection:   selection,
		spinner:     spin,
		output:      viewport.New(70, 15),
		markdown:    newMarkdownRenderer(),
		seen:        make(map[string]bool),
	}
}
