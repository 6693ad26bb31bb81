package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cli struct {
	t       *testing.T
	cfgPath string
	dir     string
}

func newCLI(t *testing.T, baseURL string) *cli {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`provider: openai
api_key: sk-test
model: gpt-5-mini
base_url: %s
system_prompt: false
storage_path: %s
log_level: error
`, baseURL, filepath.Join(dir, "promptit.db"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	return &cli{t: t, cfgPath: cfgPath, dir: dir}
}

// exec runs one command line against the test config with stdin.
func (c *cli) exec(stdin string, args ...string) (string, error) {
	c.t.Helper()
	outputFormat = "text"
	listAll = false
	runThen = nil
	verbose = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", c.cfgPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	teardown()
	return out.String(), err
}

func (c *cli) must(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.exec(stdin, args...)
	if err != nil {
		c.t.Fatalf("promptit %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestListShowsBundledPromptlets(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")

	out := c.must("", "list")
	for _, name := range []string{"Summarise", "Rephrase", "Crossword Solver"} {
		if !strings.Contains(out, name) {
			t.Errorf("list output missing %s:\n%s", name, out)
		}
	}

	c.must("", "disable", "rephrase")
	if out := c.must("", "list"); strings.Contains(out, "Rephrase") {
		t.Errorf("hidden promptlet listed:\n%s", out)
	}
	if out := c.must("", "list", "--all"); !strings.Contains(out, "Rephrase") {
		t.Errorf("list --all misses the hidden promptlet:\n%s", out)
	}
}

func TestCustomPromptletLifecycle(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")

	c.must("", "add", "Haiku", "--prompt", "Write a haiku about the text.", "--emoji", "🌸")
	if _, err := c.exec("", "add", "haiku", "--prompt", "dup"); err == nil {
		t.Error("adding a case-insensitive duplicate succeeded")
	}

	c.must("", "edit", "Haiku", "--max-tokens", "300")
	out := c.must("", "show", "Haiku", "-o", "json")
	var p struct {
		Name      string `json:"name"`
		Prompt    string `json:"prompt"`
		MaxTokens int    `json:"maxTokens"`
	}
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("show -o json: %v\n%s", err, out)
	}
	if p.Prompt != "Write a haiku about the text." || p.MaxTokens != 300 {
		t.Errorf("show = %+v", p)
	}

	if _, err := c.exec("", "edit", "Summarise", "--prompt", "x"); err == nil {
		t.Error("editing a bundled promptlet succeeded")
	}
	if _, err := c.exec("", "delete", "Summarise"); err == nil {
		t.Error("deleting a bundled promptlet succeeded")
	}

	c.must("", "clone", "Haiku")
	c.must("", "delete", "Haiku")
	out = c.must("", "list")
	if !strings.Contains(out, "Haiku (Copy)") {
		t.Errorf("clone missing from list:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Haiku") && !strings.Contains(line, "(Copy)") {
			t.Errorf("deleted promptlet still listed: %q", line)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newCLI(t, "http://127.0.0.1:0")
	src.must("", "add", "Tone", "--prompt", "Make it friendlier.")
	exported := src.must("", "export")

	dst := newCLI(t, "http://127.0.0.1:0")
	dst.must("", "add", "Tone", "--prompt", "Already here.")
	out := dst.must(exported, "import", "-")
	if !strings.Contains(out, "imported 1 promptlets") || !strings.Contains(out, `"Tone (Copy)"`) {
		t.Errorf("import output:\n%s", out)
	}

	if _, err := dst.exec(`{"promptlets":[{"name":"","prompt":"x"}]}`, "import", "-"); err == nil {
		t.Error("importing an entry without a name succeeded")
	}
}

func TestMenuPrintsIDs(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	out := c.must("", "menu")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "promptlet_0_Summarise\t") {
		t.Errorf("first menu line = %q", lines[0])
	}
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, "manage_promptlets\t") {
		t.Errorf("last menu line = %q", last)
	}
}

func TestRunChainsPromptlets(t *testing.T) {
	var inputs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []struct {
				Content string `json:"content"`
			} `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		inputs = append(inputs, req.Input[len(req.Input)-1].Content)
		fmt.Fprintf(w, `{"output_text":"step %d","usage":{"input_tokens":4,"output_tokens":2}}`, len(inputs))
	}))
	defer srv.Close()

	c := newCLI(t, srv.URL)
	out := c.must("a long article", "run", "Summarise", "--then", "Rephrase")

	if strings.TrimSpace(out) != "step 2" {
		t.Errorf("run output = %q", out)
	}
	if len(inputs) != 2 {
		t.Fatalf("requests = %d, want 2", len(inputs))
	}
	if !strings.HasSuffix(inputs[0], "\n\na long article") || !strings.HasSuffix(inputs[1], "\n\nstep 1") {
		t.Errorf("inputs = %q", inputs)
	}
}

func TestRunReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	c := newCLI(t, srv.URL)
	_, err := c.exec("", "run", "Verify", "some", "claim")
	if err == nil || !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("run error = %v", err)
	}
}

func TestRunUnknownPromptlet(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	if _, err := c.exec("", "run", "Nope", "text"); err == nil {
		t.Error("running an unknown promptlet succeeded")
	}
}

func TestTriggerDetachedLeavesHandoff(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	out := c.must("", "trigger", "--detach", "promptlet_1_Rephrase", "hello there")
	if !strings.HasPrefix(out, "queued Rephrase (") {
		t.Errorf("trigger output = %q", out)
	}
}
