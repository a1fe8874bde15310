package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/testutil"
)

func jpeg(tag string) imagen.Image {
	return imagen.Image{Data: []byte(tag), MIMEType: imagen.MIMEJPEG}
}

func TestFolderName(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		index  int
		want   string
	}{
		{"alphanumeric kept", "cat42", 0, "cat42"},
		{"spaces and punctuation", "a cat, sitting!", 0, "a_cat__sitting_"},
		{"non ascii letters", "котка", 0, "_____"},
		{"truncated to 50", strings.Repeat("ab", 40), 0, strings.Repeat("ab", 25)},
		{"astral rune counts twice", "cat 🐱", 0, "cat___"},
		{"astral rune cut at the limit", strings.Repeat("a", 49) + "🐱", 0, strings.Repeat("a", 49) + "_"},
		{"empty prompt falls back", "", 2, "prompt_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FolderName(tt.prompt, tt.index); got != tt.want {
				t.Errorf("FolderName(%q, %d) = %q, want %q", tt.prompt, tt.index, got, tt.want)
			}
		})
	}
}

func TestWriteZip_AbsentImagesContributeNoFile(t *testing.T) {
	groups := []*results.Group{
		results.NewGroup("a cat", []imagen.Image{jpeg("cat1")}, 2),
	}

	var buf bytes.Buffer
	if err := WriteZip(&buf, groups); err != nil {
		t.Fatalf("WriteZip() failed: %v", err)
	}

	entries := testutil.ZipEntries(t, buf.Bytes())
	if !reflect.DeepEqual(entries, []string{"a_cat/image_1.jpeg"}) {
		t.Errorf("entries = %v", entries)
	}
	if got := testutil.ZipFile(t, buf.Bytes(), "a_cat/image_1.jpeg"); string(got) != "cat1" {
		t.Errorf("content = %q, want cat1", got)
	}
}

func TestWriteZip_SlotNumbering(t *testing.T) {
	// A missing first slot keeps the second image at position 2.
	g := results.NewGroup("a dog", []imagen.Image{jpeg("d1"), jpeg("d2")}, 2)
	g.Images[0] = nil

	var buf bytes.Buffer
	if err := WriteZip(&buf, []*results.Group{g}); err != nil {
		t.Fatalf("WriteZip() failed: %v", err)
	}

	if entries := testutil.ZipEntries(t, buf.Bytes()); !reflect.DeepEqual(entries, []string{"a_dog/image_2.jpeg"}) {
		t.Errorf("entries = %v", entries)
	}
}

func TestWriteZip_DuplicateFoldersMerge(t *testing.T) {
	groups := []*results.Group{
		results.NewGroup("a cat", []imagen.Image{jpeg("first1"), jpeg("first2")}, 2),
		results.NewGroup("a cat", []imagen.Image{jpeg("second1")}, 1),
		results.NewGroup("", []imagen.Image{jpeg("anon")}, 1),
	}

	var buf bytes.Buffer
	if err := WriteZip(&buf, groups); err != nil {
		t.Fatalf("WriteZip() failed: %v", err)
	}

	data := buf.Bytes()
	want := []string{"a_cat/image_1.jpeg", "a_cat/image_2.jpeg", "prompt_3/image_1.jpeg"}
	if entries := testutil.ZipEntries(t, data); !reflect.DeepEqual(entries, want) {
		t.Fatalf("entries = %v, want %v", entries, want)
	}
	if got := testutil.ZipFile(t, data, "a_cat/image_1.jpeg"); string(got) != "second1" {
		t.Errorf("a_cat/image_1.jpeg = %q, want the later image", got)
	}
	if got := testutil.ZipFile(t, data, "a_cat/image_2.jpeg"); string(got) != "first2" {
		t.Errorf("a_cat/image_2.jpeg = %q, want first2", got)
	}
}

func TestWriteZip_FailedGroupKeepsFolder(t *testing.T) {
	groups := []*results.Group{
		results.NewGroup("a cat", []imagen.Image{jpeg("cat1")}, 1),
		results.NewFailedGroup("a dog", 2, errors.New("all API keys are exhausted or invalid")),
		results.NewFailedGroup("a cat", 1, errors.New("boom")),
	}

	var buf bytes.Buffer
	if err := WriteZip(&buf, groups); err != nil {
		t.Fatalf("WriteZip() failed: %v", err)
	}

	data := buf.Bytes()
	if folders := testutil.ZipFolders(t, data); !reflect.DeepEqual(folders, []string{"a_cat/", "a_dog/"}) {
		t.Errorf("folders = %v, want [a_cat/ a_dog/]", folders)
	}
	if entries := testutil.ZipEntries(t, data); !reflect.DeepEqual(entries, []string{"a_cat/image_1.jpeg"}) {
		t.Errorf("entries = %v", entries)
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", DefaultCurrentName)

	groups := []*results.Group{
		results.NewGroup("a cat", []imagen.Image{jpeg("c1"), jpeg("c2")}, 2),
		results.NewFailedGroup("a dog", 2, errors.New("boom")),
	}
	if err := ExportFile(path, groups); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}

	entries := testutil.ZipEntries(t, testutil.ReadZipFile(t, path))
	if !reflect.DeepEqual(entries, []string{"a_cat/image_1.jpeg", "a_cat/image_2.jpeg"}) {
		t.Errorf("entries = %v", entries)
	}

	// No temporary files are left behind
	files, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to read output directory: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected only the archive in the output directory, got %d files", len(files))
	}
}

func TestExportFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultHistoryName)

	if err := ExportFile(path, nil); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("ExportFile() error = %v, want ErrNothingToExport", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("archive was created for an empty export")
	}
}

func TestExportFile_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	testutil.CreateTestFile(t, blocker, []byte("x"))

	groups := []*results.Group{results.NewGroup("a", []imagen.Image{jpeg("1")}, 1)}
	err := ExportFile(filepath.Join(blocker, "out.zip"), groups)
	if err == nil || !strings.HasPrefix(err.Error(), "failed to create zip file: ") {
		t.Errorf("ExportFile() error = %v", err)
	}
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	g := results.NewGroup("a red fox", []imagen.Image{jpeg("fox")}, 2)

	path, err := SaveImage(dir, g, 0, 0)
	if err != nil {
		t.Fatalf("SaveImage() failed: %v", err)
	}
	if filepath.Base(path) != "a_red_fox_1.jpeg" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "fox" {
		t.Errorf("saved data = %q, err %v", data, err)
	}

	if _, err := SaveImage(dir, g, 0, 1); err == nil {
		t.Error("expected error for a missing image")
	}
	if _, err := SaveImage(dir, g, 0, 5); !errors.Is(err, results.ErrNoSuchSlot) {
		t.Errorf("SaveImage() error = %v, want ErrNoSuchSlot", err)
	}
}
