// Package archive packs result groups into zip archives, one folder per
// prompt and one JPEG file per present image.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"codeberg.org/snonux/bulkimagen/internal/results"
)

// Default archive names for the two result lists
const (
	DefaultCurrentName = "current-generation.zip"
	DefaultHistoryName = "generated-images.zip"
)

const maxFolderName = 50

// ErrNothingToExport is returned when there are no groups to export
var ErrNothingToExport = errors.New("nothing to export")

// FolderName derives the folder of a group from its prompt: every UTF-16
// code unit outside [A-Za-z0-9] becomes '_' (two for a rune outside the
// basic multilingual plane) and the result is cut to 50 characters. An
// empty result falls back to prompt_<index+1>.
func FolderName(prompt string, index int) string {
	var b strings.Builder
	for _, r := range prompt {
		if b.Len() >= maxFolderName {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case utf16.RuneLen(r) == 2:
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if len(name) > maxFolderName {
		name = name[:maxFolderName]
	}
	if name == "" {
		return fmt.Sprintf("prompt_%d", index+1)
	}
	return name
}

// ImageName returns the file name of slot imageIndex inside a group folder
func ImageName(imageIndex int) string {
	return fmt.Sprintf("image_%d.jpeg", imageIndex+1)
}

type entry struct {
	path string
	data []byte
}

func (e entry) isFolder() bool {
	return strings.HasSuffix(e.path, "/")
}

// layout resolves the archive entries of groups. Every group gets its
// folder, even when none of its images are present. Groups sharing a
// folder name share the folder, and a later file with the same path
// replaces the earlier one while keeping its position.
func layout(groups []*results.Group) []entry {
	var entries []entry
	index := make(map[string]int)

	for gi, g := range groups {
		folder := FolderName(g.Prompt, gi) + "/"
		if _, ok := index[folder]; !ok {
			index[folder] = len(entries)
			entries = append(entries, entry{path: folder})
		}

		for ii, img := range g.Images {
			if img == nil {
				continue
			}
			path := folder + ImageName(ii)
			if pos, ok := index[path]; ok {
				entries[pos].data = img.Data
				continue
			}
			index[path] = len(entries)
			entries = append(entries, entry{path: path, data: img.Data})
		}
	}
	return entries
}

// WriteZip writes groups as a zip archive to w
func WriteZip(w io.Writer, groups []*results.Group) error {
	zw := zip.NewWriter(w)

	for _, e := range layout(groups) {
		fw, err := zw.Create(e.path)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.path, err)
		}
		if e.isFolder() {
			continue
		}
		if _, err := fw.Write(e.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.path, err)
		}
	}

	return zw.Close()
}

// ExportFile writes groups to a zip file at path. The archive is written
// to a temporary file in the same directory and renamed into place, so a
// failed export never leaves a truncated archive behind.
func ExportFile(path string, groups []*results.Group) error {
	if len(groups) == 0 {
		return ErrNothingToExport
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bulkimagen-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteZip(tmp, groups); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	return nil
}

// SaveImage writes a single image of a group to dir as
// <folder>_<n>.jpeg and returns the written path
func SaveImage(dir string, group *results.Group, groupIndex, imageIndex int) (string, error) {
	if imageIndex < 0 || imageIndex >= len(group.Images) {
		return "", fmt.Errorf("%w: image %d", results.ErrNoSuchSlot, imageIndex+1)
	}
	img := group.Images[imageIndex]
	if img == nil {
		return "", fmt.Errorf("image %d of %q is missing", imageIndex+1, group.Prompt)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpeg", FolderName(group.Prompt, groupIndex), imageIndex+1))
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path, nil
}
