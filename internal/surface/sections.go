package surface

import (
	"regexp"
	"strings"
)

var sectionHeader = regexp.MustCompile(`(?im)^(Main Output|Notes|Commentary|Change Log|Warnings?):\s*$`)

// Section is a titled part of a model answer. The untitled section holds
// text before the first heading.
type Section struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Body  string `json:"body" yaml:"body"`
}

// Sections splits text on heading lines such as "Notes:". Text without
// headings comes back verbatim as a single untitled section.
func Sections(text string) []Section {
	locs := sectionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []Section{{Body: text}}
	}

	var sections []Section
	if lead := strings.TrimSpace(text[:locs[0][0]]); lead != "" {
		sections = append(sections, Section{Body: lead})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, Section{
			Title: text[loc[2]:loc[3]],
			Body:  strings.Trim(text[loc[1]:end], "\r\n"),
		})
	}
	return sections
}
