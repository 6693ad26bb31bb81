package tui

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders output with glamour, caching by content and
// width so resizes and redraws stay cheap.
type markdownRenderer struct {
	cache map[string]string
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{cache: make(map[string]string)}
}

func (r *markdownRenderer) Render(md string, width int) string {
	if md == "" {
		return ""
	}

	h := sha256.Sum256([]byte(md))
	key := fmt.Sprintf("%x:%d", h[:8], width)
	if cached, ok := r.cache[key]; ok {
		return cached
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	rendered = strings.TrimRight(rendered, "\n ")

	r.cache[key] = rendered
	return rendered
}
