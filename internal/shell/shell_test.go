package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
	"codeberg.org/snonux/bulkimagen/internal/session"
	"codeberg.org/snonux/bulkimagen/internal/testutil"
)

func newTestShell(gen *testutil.MockGenerator) (*Shell, *session.Session, *bytes.Buffer) {
	sess := session.New(rotation.NewDispatcher(gen), nil, nil)
	var out bytes.Buffer
	return New(sess, strings.NewReader(""), &out), sess, &out
}

func run(t *testing.T, sh *Shell, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := sh.Exec(context.Background(), line); err != nil {
			t.Fatalf("Exec(%q) failed: %v", line, err)
		}
	}
}

func TestExec_KeysAndPrompts(t *testing.T) {
	sh, sess, out := newTestShell(testutil.NewMockGenerator())

	run(t, sh,
		"keys add AAAA1111 BBBB2222 AAAA1111",
		"keys remove 1",
		"prompts add a cat  on a mat",
		"prompts add a dog",
		"count 3",
		"ratio 16:9",
	)

	if got := sess.Keys().List(); !reflect.DeepEqual(got, []string{"BBBB2222"}) {
		t.Errorf("keys = %v", got)
	}
	if got := sess.Prompts(); !reflect.DeepEqual(got, []string{"a cat  on a mat", "a dog"}) {
		t.Errorf("prompts = %q", got)
	}
	if sess.ImageCount() != 3 || sess.AspectRatio() != imagen.AspectCinematic {
		t.Errorf("count = %d, ratio = %s", sess.ImageCount(), sess.AspectRatio())
	}
	if !strings.Contains(out.String(), "Added 2 key(s), 2 total") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	run(t, sh, "keys list")
	if !strings.Contains(out.String(), "1. BBBB...2222") {
		t.Errorf("keys list = %q", out.String())
	}
}

func TestExec_RemoveNumericKey(t *testing.T) {
	sh, sess, _ := newTestShell(testutil.NewMockGenerator())

	run(t, sh, "keys add 12345678 AAAA1111 BBBB2222", "keys remove 12345678", "keys remove 2")

	if got := sess.Keys().List(); !reflect.DeepEqual(got, []string{"AAAA1111"}) {
		t.Errorf("keys = %v, want [AAAA1111]", got)
	}
}

func TestExec_LoadFiles(t *testing.T) {
	sh, sess, _ := newTestShell(testutil.NewMockGenerator())

	keysFile := filepath.Join(t.TempDir(), "keys.txt")
	testutil.CreateTestFile(t, keysFile, []byte("K1\nK2\n"))
	promptFile := testutil.CreatePromptFile(t, "a fox", "", "a owl")

	run(t, sh, "prompts add replaced", "keys load "+keysFile, "prompts load "+promptFile)

	if sess.Keys().Len() != 2 {
		t.Errorf("keys = %v", sess.Keys().List())
	}
	if got := sess.Prompts(); !reflect.DeepEqual(got, []string{"a fox", "a owl"}) {
		t.Errorf("prompts = %q", got)
	}
}

func TestExec_GenerateRewriteExport(t *testing.T) {
	gen := testutil.NewMockGenerator()
	sh, sess, out := newTestShell(gen)
	dir := t.TempDir()

	run(t, sh, "keys add K1", "prompts add a cat", "generate")
	if !strings.Contains(out.String(), "Generating 2 images...") || !strings.Contains(out.String(), "Generated 2 of 2 images") {
		t.Errorf("generate output = %q", out.String())
	}

	run(t, sh, "rewrite current 1 2 a cat wearing a hat")
	last := gen.Calls[len(gen.Calls)-1]
	if last.Prompt != "a cat wearing a hat" || last.NumberOfImages != 1 {
		t.Errorf("rewrite call = %+v", last)
	}

	zipPath := filepath.Join(dir, "out.zip")
	run(t, sh, "export current "+zipPath, "save current 1 2 "+dir)

	entries := testutil.ZipEntries(t, testutil.ReadZipFile(t, zipPath))
	if !reflect.DeepEqual(entries, []string{"a_cat/image_1.jpeg", "a_cat/image_2.jpeg"}) {
		t.Errorf("entries = %v", entries)
	}
	saved, err := os.ReadFile(filepath.Join(dir, "a_cat_2.jpeg"))
	if err != nil || !strings.HasSuffix(string(saved), "a cat wearing a hat#0") {
		t.Errorf("saved image = %q, err %v", saved, err)
	}

	run(t, sh, "generate", "history clear")
	if sess.Results().Len(results.SourceHistory) != 0 || sess.Results().Len(results.SourceCurrent) != 1 {
		t.Error("history clear did not empty the history")
	}
}

func TestExec_Errors(t *testing.T) {
	sh, sess, _ := newTestShell(testutil.NewMockGenerator())

	tests := []struct {
		line string
		want string
	}{
		{"frobnicate", "unknown command"},
		{"generate", session.MsgMissingInput},
		{"count many", "invalid image count"},
		{"count 7", "image count must be between 1 and 4"},
		{"ratio 2:1", "unsupported aspect ratio"},
		{"rewrite current 1", "usage: rewrite"},
		{"rewrite archive 1 1", "unknown result source"},
		{"rewrite current 1 1", "no such image slot"},
		{"export history", "no history results to export"},
		{"keys remove 5", "no key number 5"},
		{"history", "usage: history clear"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := sh.Exec(context.Background(), tt.line)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Exec(%q) error = %v, want %q", tt.line, err, tt.want)
			}
		})
	}

	if sess.Busy() {
		t.Error("session left busy")
	}
}

func TestRun_Loop(t *testing.T) {
	gen := testutil.NewMockGenerator()
	sess := session.New(rotation.NewDispatcher(gen), nil, nil)
	input := strings.Join([]string{
		"keys add K1",
		"",
		"bogus",
		"prompts add a cat",
		"generate",
		"quit",
		"prompts add never reached",
	}, "\n")

	var out bytes.Buffer
	if err := New(sess, strings.NewReader(input), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if gen.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", gen.CallCount())
	}
	if len(sess.Prompts()) != 1 {
		t.Errorf("commands after quit were executed: %v", sess.Prompts())
	}
	if !strings.Contains(out.String(), `Error: unknown command "bogus"`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_EndOfInput(t *testing.T) {
	sess := session.New(rotation.NewDispatcher(testutil.NewMockGenerator()), nil, nil)
	var out bytes.Buffer
	if err := New(sess, strings.NewReader("help"), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !strings.Contains(out.String(), "rewrite SRC G I [PROMPT]") {
		t.Errorf("help not printed: %q", out.String())
	}
}

// interruptingGenerator fires onCall before delegating call number at
type interruptingGenerator struct {
	*testutil.MockGenerator
	at     int
	onCall func()

	mu    sync.Mutex
	calls int
}

func (g *interruptingGenerator) Generate(ctx context.Context, apiKey string, req *imagen.Request) ([]imagen.Image, error) {
	g.mu.Lock()
	g.calls++
	fire := g.calls == g.at
	g.mu.Unlock()

	if fire {
		g.onCall()
	}
	return g.MockGenerator.Generate(ctx, apiKey, req)
}

func TestRun_InterruptedGenerateKeepsSession(t *testing.T) {
	gen := &interruptingGenerator{MockGenerator: testutil.NewMockGenerator(), at: 2}
	sess := session.New(rotation.NewDispatcher(gen), nil, nil)
	zipPath := filepath.Join(t.TempDir(), "partial.zip")

	input := strings.Join([]string{
		"keys add K1",
		"prompts add a cat",
		"prompts add a dog",
		"prompts add a fox",
		"generate",
		"export current " + zipPath,
		"quit",
	}, "\n")

	var out bytes.Buffer
	sh := New(sess, strings.NewReader(input), &out)
	gen.onCall = sh.interrupt

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if gen.CallCount() != 2 {
		t.Errorf("CallCount() = %d, want 2", gen.CallCount())
	}
	if got := sess.Results().Len(results.SourceCurrent); got != 2 {
		t.Errorf("current groups = %d, want 2", got)
	}
	if !strings.Contains(out.String(), "Generation stopped") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "Wrote "+zipPath) {
		t.Fatalf("export did not run after the interrupt: %q", out.String())
	}

	data := testutil.ReadZipFile(t, zipPath)
	if entries := testutil.ZipEntries(t, data); !reflect.DeepEqual(entries, []string{"a_cat/image_1.jpeg", "a_cat/image_2.jpeg"}) {
		t.Errorf("entries = %v", entries)
	}
	if folders := testutil.ZipFolders(t, data); !reflect.DeepEqual(folders, []string{"a_cat/", "a_dog/"}) {
		t.Errorf("folders = %v", folders)
	}
}

func TestInterrupt_IdlePromptKeepsRunning(t *testing.T) {
	sh, _, out := newTestShell(testutil.NewMockGenerator())

	sh.interrupt()
	if !strings.Contains(out.String(), "type 'quit' to leave") {
		t.Errorf("output = %q", out.String())
	}
	run(t, sh, "keys add K1")
}
