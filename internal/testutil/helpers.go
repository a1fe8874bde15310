package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// CreatePromptFile writes one prompt per line into a temp file and returns its path
func CreatePromptFile(t *testing.T, prompts ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "prompts.txt")
	CreateTestFile(t, path, []byte(strings.Join(prompts, "\n")))
	return path
}

// ZipEntries returns the sorted file names of a zip archive held in memory
func ZipEntries(t *testing.T, data []byte) []string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to open zip archive: %v", err)
	}

	var names []string
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// ZipFolders returns the folder entries of a zip archive in archive order
func ZipFolders(t *testing.T, data []byte) []string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to open zip archive: %v", err)
	}

	var folders []string
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			folders = append(folders, f.Name)
		}
	}
	return folders
}

// ZipFile returns the content of one file inside a zip archive held in memory
func ZipFile(t *testing.T, data []byte, name string) []byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to open zip archive: %v", err)
	}

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		return content
	}

	t.Fatalf("File %s not found in archive", name)
	return nil
}

// ReadZipFile reads a zip archive from disk and returns its bytes
func ReadZipFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return data
}
