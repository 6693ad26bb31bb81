package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed system.md
var systemBase string

// System builds the system message for the given BCP 47 locale, e.g.
// "en-GB" or "fr". An empty locale means British English.
func System(locale string) (string, error) {
	tag, err := ParseLocale(locale)
	if err != nil {
		return "", err
	}

	r := strings.NewReplacer(
		"{{language}}", display.English.Tags().Name(tag),
		"{{native}}", display.Self.Name(tag),
	)
	return strings.TrimSpace(r.Replace(systemBase)), nil
}

// ParseLocale validates a locale tag.
func ParseLocale(locale string) (language.Tag, error) {
	if locale == "" {
		return language.BritishEnglish, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return tag, nil
}

// UserContent joins a promptlet's instruction and the selected text.
func UserContent(prompt, input string) string {
	return prompt + "\n\n" + input
}
