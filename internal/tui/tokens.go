package tui

import (
	"fmt"
	"time"

	"github.com/sant0-9/promptit/internal/executor"
)

// estimateTokens returns approximate token count (~4 chars per token)
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// usageLine summarises a result: model, latency and token usage when the
// provider reported it.
func usageLine(res *executor.Result) string {
	if res == nil {
		return ""
	}
	line := fmt.Sprintf("%s · %s", res.Model, res.Elapsed.Round(10*time.Millisecond))
	if res.Usage != nil {
		line += " · " + res.Usage.String()
	}
	return line
}
