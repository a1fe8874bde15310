package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"codeberg.org/snonux/bulkimagen/internal/session"
)

// Format is the encoding of a run report
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat returns the Format named by s
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

// GroupReport is one prompt's entry in a run report
type GroupReport struct {
	Prompt    string `json:"prompt" yaml:"prompt"`
	Requested int    `json:"requested" yaml:"requested"`
	Generated int    `json:"generated" yaml:"generated"`
	Missing   []int  `json:"missing,omitempty" yaml:"missing,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport is the machine readable outcome of a run
type RunReport struct {
	ID              string        `json:"id" yaml:"id"`
	Started         time.Time     `json:"started" yaml:"started"`
	Duration        string        `json:"duration" yaml:"duration"`
	Provider        string        `json:"provider,omitempty" yaml:"provider,omitempty"`
	Prompts         int           `json:"prompts" yaml:"prompts"`
	ImagesRequested int           `json:"images_requested" yaml:"images_requested"`
	ImagesGenerated int           `json:"images_generated" yaml:"images_generated"`
	Failed          int           `json:"failed" yaml:"failed"`
	Cancelled       bool          `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Archive         string        `json:"archive,omitempty" yaml:"archive,omitempty"`
	Groups          []GroupReport `json:"groups" yaml:"groups"`
}

// NewRunReport builds a report from a run summary
func NewRunReport(s *session.Summary, provider, archivePath string) *RunReport {
	r := &RunReport{
		ID:              s.ID,
		Started:         s.Started,
		Duration:        s.Duration.Round(time.Millisecond).String(),
		Provider:        provider,
		Prompts:         s.Prompts,
		ImagesRequested: s.ImagesRequested,
		ImagesGenerated: s.ImagesGenerated,
		Failed:          s.Failed,
		Cancelled:       s.Cancelled,
		Archive:         archivePath,
		Groups:          make([]GroupReport, len(s.Groups)),
	}
	for i, g := range s.Groups {
		gr := GroupReport{
			Prompt:    g.Prompt,
			Requested: len(g.Images),
			Generated: g.Present(),
			Error:     g.Error,
		}
		for j, img := range g.Images {
			if img == nil {
				gr.Missing = append(gr.Missing, j+1)
			}
		}
		r.Groups[i] = gr
	}
	return r
}

// OutputOptions configures where and how a report is written
type OutputOptions struct {
	Format Format

	// File is the output file path (empty for stdout)
	File string

	// Writer overrides File when set
	Writer io.Writer
}

// Output writes result in the configured format
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout

	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to format report: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported report format: %s", opts.Format)
	}
}
