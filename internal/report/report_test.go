package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/bulkimagen/internal/batch"
	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/session"
)

func testSummary() *session.Summary {
	img := imagen.Image{Data: []byte("x"), MIMEType: imagen.MIMEJPEG}
	return &session.Summary{
		ID:              "run-1",
		Started:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:        1500 * time.Millisecond,
		Prompts:         2,
		ImagesRequested: 4,
		ImagesGenerated: 1,
		Succeeded:       1,
		Failed:          1,
		Groups: []*results.Group{
			results.NewGroup("a cat", []imagen.Image{img}, 2),
			results.NewFailedGroup("a dog", 2, errors.New("all API keys are exhausted or invalid")),
		},
	}
}

func TestNewRunReport(t *testing.T) {
	r := NewRunReport(testSummary(), "imagen", "out.zip")

	if r.Duration != "1.5s" || r.Archive != "out.zip" || len(r.Groups) != 2 {
		t.Fatalf("report = %+v", r)
	}
	cat := r.Groups[0]
	if cat.Generated != 1 || cat.Requested != 2 || len(cat.Missing) != 1 || cat.Missing[0] != 2 {
		t.Errorf("cat group = %+v", cat)
	}
	if r.Groups[1].Error == "" {
		t.Error("failed group lost its error")
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(NewRunReport(testSummary(), "imagen", ""), OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatalf("Output() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"id: run-1", "images_requested: 4", "prompt: a cat", "Failed: all API keys"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "archive:") {
		t.Error("empty archive should be omitted")
	}
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(NewRunReport(testSummary(), "openai", ""), OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output() failed: %v", err)
	}

	var decoded struct {
		Provider string `json:"provider"`
		Groups   []struct {
			Prompt  string `json:"prompt"`
			Missing []int  `json:"missing"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Provider != "openai" || len(decoded.Groups) != 2 || len(decoded.Groups[1].Missing) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := Output(map[string]int{"prompts": 3}, OutputOptions{File: path}); err != nil {
		t.Fatalf("Output() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "prompts: 3") {
		t.Errorf("file content = %q, err %v", data, err)
	}
}

func TestOutput_UnknownFormat(t *testing.T) {
	if err := Output(nil, OutputOptions{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) expected error")
	}
}

func TestProgress_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	groups := testSummary().Groups
	for i, g := range groups {
		p.JobDone(batch.JobProgress{Index: i, Total: 2, Group: g, Percent: float64(i+1) * 50})
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], " 50% (1/2) a cat: 1/2 images") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "100% (2/2) a dog: Failed:") {
		t.Errorf("line 2 = %q", lines[1])
	}
	if strings.Contains(buf.String(), "\r") {
		t.Error("non-terminal output should not redraw in place")
	}
}

func TestProgress_Inline(t *testing.T) {
	orig := isTerminal
	isTerminal = func(fd uintptr) bool { return true }
	defer func() { isTerminal = orig }()

	f, err := os.CreateTemp(t.TempDir(), "progress")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer f.Close()

	p := NewProgress(f)
	g := testSummary().Groups[0]
	p.JobDone(batch.JobProgress{Index: 0, Total: 2, Group: g, Percent: 50})
	p.JobDone(batch.JobProgress{Index: 1, Total: 2, Group: g, Percent: 100})

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("Failed to read progress output: %v", err)
	}
	out := string(data)
	if strings.Count(out, "\r") != 2 || !strings.HasSuffix(out, "\n") || strings.Count(out, "\n") != 1 {
		t.Errorf("inline output = %q", out)
	}
}

func TestPrinter_Groups(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Groups("Current results", testSummary().Groups)

	out := buf.String()
	for _, want := range []string{"Current results (2)", " 1. a cat [1 -]", " 2. a dog [- -]", "Failed: all API keys"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	NewPrinter(&buf).Groups("History", nil)
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("empty listing = %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long prompt indeed", 10); got != "a very ..." {
		t.Errorf("truncate() = %q", got)
	}
}
