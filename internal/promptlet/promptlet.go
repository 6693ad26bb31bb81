// Package promptlet defines the reusable prompt templates the user runs
// against selected text, and the store that persists them.
package promptlet

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultModel       = "gpt-5-mini"
	DefaultEmoji       = "📝"
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 1500
	DefaultTopP        = 1.0

	// ManageID is the menu id of the fixed "manage promptlets" action.
	ManageID = "manage_promptlets"
)

// Promptlet is a named prompt template with model parameters.
type Promptlet struct {
	Name             string   `json:"name" yaml:"name"`
	Emoji            string   `json:"emoji" yaml:"emoji"`
	Prompt           string   `json:"prompt" yaml:"prompt"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Model            string   `json:"model" yaml:"model"`
	Temperature      float64  `json:"temperature" yaml:"temperature"`
	MaxTokens        int      `json:"maxTokens" yaml:"maxTokens"`
	TopP             float64  `json:"topP" yaml:"topP"`
	FrequencyPenalty float64  `json:"frequencyPenalty" yaml:"frequencyPenalty"`
	PresencePenalty  float64  `json:"presencePenalty" yaml:"presencePenalty"`
	OutputStructure  []string `json:"outputStructure" yaml:"outputStructure"`

	IsDefault    bool  `json:"isDefault" yaml:"-"`
	IsActive     bool  `json:"isActive" yaml:"-"`
	DefaultIndex int   `json:"defaultIndex" yaml:"-"`
	CustomIndex  int   `json:"customIndex" yaml:"-"`
	CreatedAt    int64 `json:"createdAt,omitempty" yaml:"-"`
	LastModified int64 `json:"lastModified,omitempty" yaml:"-"`
}

// UnmarshalJSON fills fields absent from older records: a missing isActive
// means active, missing sampling parameters take their defaults and a
// missing index is marked -1 so the loader can assign the record position.
func (p *Promptlet) UnmarshalJSON(data []byte) error {
	type plain Promptlet
	aux := struct {
		*plain
		IsActive     *bool    `json:"isActive"`
		Temperature  *float64 `json:"temperature"`
		TopP         *float64 `json:"topP"`
		DefaultIndex *int     `json:"defaultIndex"`
		CustomIndex  *int     `json:"customIndex"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.IsActive = aux.IsActive == nil || *aux.IsActive
	p.Temperature = DefaultTemperature
	if aux.Temperature != nil {
		p.Temperature = *aux.Temperature
	}
	p.TopP = DefaultTopP
	if aux.TopP != nil {
		p.TopP = *aux.TopP
	}
	p.DefaultIndex = -1
	if aux.DefaultIndex != nil {
		p.DefaultIndex = *aux.DefaultIndex
	}
	p.CustomIndex = -1
	if aux.CustomIndex != nil {
		p.CustomIndex = *aux.CustomIndex
	}
	return nil
}

// Normalize fills empty parameters with their defaults.
func (p *Promptlet) Normalize(defaultModel string) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Model == "" {
		p.Model = defaultModel
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.TopP <= 0 {
		p.TopP = DefaultTopP
	}
	if len(p.OutputStructure) == 0 {
		p.OutputStructure = []string{"main"}
	}
}

// Label is the menu text for the promptlet.
func (p Promptlet) Label() string {
	emoji := p.Emoji
	if emoji == "" {
		emoji = DefaultEmoji
	}
	return emoji + " " + p.Name
}

// Tooltip is the description, or the start of the prompt when there is none.
func (p Promptlet) Tooltip() string {
	if p.Description != "" {
		return p.Description
	}
	text := strings.Join(strings.Fields(p.Prompt), " ")
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:77]) + "..."
	}
	return text
}

// Index returns the order key within the promptlet's bucket.
func (p Promptlet) Index() int {
	if p.IsDefault {
		return p.DefaultIndex
	}
	return p.CustomIndex
}

var whitespace = regexp.MustCompile(`\s`)

// safeName replaces every whitespace rune with an underscore.
func safeName(name string) string {
	return whitespace.ReplaceAllString(name, "_")
}

var menuIDPattern = regexp.MustCompile(`^promptlet_(\d+)_(.+)$`)

// MenuID is the menu identifier for the promptlet at position index.
func MenuID(index int, name string) string {
	return "promptlet_" + strconv.Itoa(index) + "_" + safeName(name)
}

// ParseMenuID extracts the position and the underscored name from a menu id.
func ParseMenuID(id string) (int, string, error) {
	m := menuIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, "", fmt.Errorf("not a promptlet menu id: %q", id)
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", fmt.Errorf("menu id index: %w", err)
	}
	return index, m[2], nil
}
