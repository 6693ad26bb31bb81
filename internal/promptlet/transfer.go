package promptlet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Import limits.
const (
	ExportVersion   = "1.0"
	MaxPromptLength = 7000
	MinMaxTokens    = 100
	MaxMaxTokens    = 16000
	MaxTemperature  = 2.0
)

// ExportEntry is one promptlet in an export document.
type ExportEntry struct {
	Name            string   `json:"name"`
	Emoji           string   `json:"emoji"`
	Prompt          string   `json:"prompt"`
	Active          bool     `json:"active"`
	Model           string   `json:"model"`
	Temperature     float64  `json:"temperature"`
	MaxTokens       int      `json:"maxTokens"`
	OutputStructure []string `json:"outputStructure"`
}

// ExportDocument is the file format shared by export and import.
type ExportDocument struct {
	Version    string        `json:"version"`
	ExportDate string        `json:"exportDate"`
	Promptlets []ExportEntry `json:"promptlets"`
}

// Conflict records an imported promptlet stored under a new name.
type Conflict struct {
	Name    string
	Renamed string
}

// ImportReport summarizes a successful import.
type ImportReport struct {
	Imported  []string
	Conflicts []Conflict
}

// Export writes the custom promptlets as an export document and returns how
// many were written. Bundled promptlets are regenerated by a reset instead.
func (s *Store) Export(ctx context.Context, w io.Writer) (int, error) {
	s.mu.Lock()
	_, customs, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	doc := ExportDocument{
		Version:    ExportVersion,
		ExportDate: s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Promptlets: make([]ExportEntry, 0, len(customs)),
	}
	for _, p := range customs {
		doc.Promptlets = append(doc.Promptlets, ExportEntry{
			Name:            p.Name,
			Emoji:           p.Emoji,
			Prompt:          p.Prompt,
			Active:          p.IsActive,
			Model:           p.Model,
			Temperature:     p.Temperature,
			MaxTokens:       p.MaxTokens,
			OutputStructure: p.OutputStructure,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(doc.Promptlets), nil
}

// importEntry keeps optional fields as pointers so absence can be told
// apart from zero.
type importEntry struct {
	Name            *string  `json:"name"`
	Emoji           string   `json:"emoji"`
	Prompt          *string  `json:"prompt"`
	Description     string   `json:"description"`
	Active          *bool    `json:"active"`
	Model           string   `json:"model"`
	Temperature     *float64 `json:"temperature"`
	MaxTokens       *int     `json:"maxTokens"`
	OutputStructure []string `json:"outputStructure"`
}

// Import reads an export document and appends its entries as customs. The
// first invalid entry rejects the whole file and nothing is written.
func (s *Store) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	entries, err := decodeImport(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	incoming := make([]Promptlet, 0, len(entries))
	for i, e := range entries {
		p, err := s.validateEntry(i, e)
		if err != nil {
			return nil, err
		}
		incoming = append(incoming, p)
	}

	report := &ImportReport{}
	taken := names(all)
	for _, p := range incoming {
		if taken[foldName(p.Name)] {
			renamed := uniqueName(p.Name, taken)
			report.Conflicts = append(report.Conflicts, Conflict{Name: p.Name, Renamed: renamed})
			p.Name = renamed
		}
		taken[foldName(p.Name)] = true
		report.Imported = append(report.Imported, p.Name)
		all = append(all, p)
	}

	if err := s.save(ctx, all); err != nil {
		return nil, err
	}
	return report, nil
}

func decodeImport(r io.Reader) ([]importEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	data = bytes.TrimSpace(data)

	var entries []importEntry
	if bytes.HasPrefix(data, []byte("[")) {
		err = json.Unmarshal(data, &entries)
	} else {
		var doc struct {
			Promptlets *[]importEntry `json:"promptlets"`
		}
		err = json.Unmarshal(data, &doc)
		if err == nil && doc.Promptlets == nil {
			return nil, invalid("promptlets", "missing promptlets list")
		}
		if doc.Promptlets != nil {
			entries = *doc.Promptlets
		}
	}
	if err != nil {
		return nil, &ValidationError{Field: "file", Reason: err.Error()}
	}
	return entries, nil
}

func (s *Store) validateEntry(i int, e importEntry) (Promptlet, error) {
	field := func(name string) string { return fmt.Sprintf("promptlets[%d].%s", i, name) }

	if e.Name == nil || strings.TrimSpace(*e.Name) == "" {
		return Promptlet{}, invalid(field("name"), "is required")
	}
	if e.Prompt == nil || strings.TrimSpace(*e.Prompt) == "" {
		return Promptlet{}, invalid(field("prompt"), "is required")
	}
	if n := utf8.RuneCountInString(*e.Prompt); n > MaxPromptLength {
		return Promptlet{}, invalid(field("prompt"), "is %d characters, limit is %d", n, MaxPromptLength)
	}

	maxTokens := DefaultMaxTokens
	if e.MaxTokens != nil {
		maxTokens = *e.MaxTokens
	}
	if maxTokens < MinMaxTokens {
		return Promptlet{}, invalid(field("maxTokens"), "%d is below the minimum of %d", maxTokens, MinMaxTokens)
	}
	maxTokens = min(maxTokens, MaxMaxTokens)

	temperature := DefaultTemperature
	if e.Temperature != nil {
		temperature = max(0, min(*e.Temperature, MaxTemperature))
	}

	ts := s.now().UnixMilli()
	p := Promptlet{
		Name:            strings.TrimSpace(*e.Name),
		Emoji:           e.Emoji,
		Prompt:          *e.Prompt,
		Description:     e.Description,
		Model:           e.Model,
		Temperature:     temperature,
		MaxTokens:       maxTokens,
		TopP:            DefaultTopP,
		OutputStructure: e.OutputStructure,
		IsActive:        e.Active == nil || *e.Active,
		DefaultIndex:    -1,
		CreatedAt:       ts,
		LastModified:    ts,
	}
	p.Normalize(s.defaultModel)
	return p, nil
}
