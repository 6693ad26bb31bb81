package promptlet

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Bundled returns a fresh copy of the promptlets shipped with the program,
// active and indexed in file order.
func Bundled(now time.Time) ([]Promptlet, error) {
	var list []Promptlet
	if err := yaml.Unmarshal(defaultsYAML, &list); err != nil {
		return nil, fmt.Errorf("parse bundled promptlets: %w", err)
	}

	ts := now.UnixMilli()
	for i := range list {
		p := &list[i]
		p.Prompt = strings.TrimRight(p.Prompt, "\n")
		p.Temperature = DefaultTemperature
		p.TopP = DefaultTopP
		p.Normalize(DefaultModel)
		p.IsDefault = true
		p.IsActive = true
		p.DefaultIndex = i
		p.CustomIndex = -1
		p.CreatedAt = ts
		p.LastModified = ts
	}
	return list, nil
}
