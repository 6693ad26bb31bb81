package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// structured writes data as yaml or json when --output asks for it and
// reports whether it did; text output is left to the caller.
func structured(w io.Writer, data any) (bool, error) {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(data)
	case "text", "":
		return false, nil
	}
	return false, fmt.Errorf("unknown output format %q", outputFormat)
}
