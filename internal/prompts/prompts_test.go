package prompts

import (
	"strings"
	"testing"
)

func TestSystem(t *testing.T) {
	tests := []struct {
		locale string
		want   []string
	}{
		{"", []string{"British English"}},
		{"en-US", []string{"American English"}},
		{"fr", []string{"French", "français"}},
		{"de-DE", []string{"German", "Deutsch"}},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			got, err := System(tt.locale)
			if err != nil {
				t.Fatalf("System() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("System() missing %q:\n%s", w, got)
				}
			}
			if strings.Contains(got, "{{") {
				t.Errorf("System() left a placeholder:\n%s", got)
			}
		})
	}

	if _, err := System("not a locale!"); err == nil {
		t.Error("System() accepted an invalid locale")
	}
}

func TestUserContent(t *testing.T) {
	got := UserContent("Summarise clearly.", "draft a reply")
	if got != "Summarise clearly.\n\ndraft a reply" {
		t.Errorf("UserContent() = %q", got)
	}
}
