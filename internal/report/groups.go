package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/session"
)

// Printer writes human readable listings
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: NewStyles(DefaultTheme)}
}

// Groups lists groups with 1-based numbers, as used by the rewrite and
// save commands. Absent slots are shown as "-".
func (p *Printer) Groups(title string, groups []*results.Group) {
	fmt.Fprintln(p.w, p.styles.Title.Render(fmt.Sprintf("%s (%d)", title, len(groups))))
	if len(groups) == 0 {
		fmt.Fprintln(p.w, p.styles.Dim.Render("  (none)"))
		return
	}

	for i, g := range groups {
		slots := make([]string, len(g.Images))
		for j, img := range g.Images {
			if img == nil {
				slots[j] = p.styles.Dim.Render("-")
			} else {
				slots[j] = p.styles.Success.Render(fmt.Sprintf("%d", j+1))
			}
		}
		fmt.Fprintf(p.w, "  %2d. %s [%s]\n", i+1, g.Prompt, strings.Join(slots, " "))
		if g.Error != "" {
			fmt.Fprintf(p.w, "      %s\n", p.styles.Failure.Render(g.Error))
		}
	}
}

// Summary prints the outcome of a run
func (p *Printer) Summary(s *session.Summary) {
	fmt.Fprintf(p.w, "\n%s %d of %d images for %d prompts in %s\n",
		p.styles.Label.Render("Generated"),
		s.ImagesGenerated, s.ImagesRequested, s.Prompts, s.Duration.Round(time.Millisecond))
	if s.Failed > 0 {
		fmt.Fprintln(p.w, p.styles.Failure.Render(fmt.Sprintf("%d prompt(s) failed", s.Failed)))
	}
	if s.Cancelled {
		fmt.Fprintln(p.w, p.styles.Failure.Render("Run cancelled before all prompts finished"))
	}
}

// State prints the settings and result counts of a session
func (p *Printer) State(s *session.Session) {
	label := p.styles.Label.Render
	fmt.Fprintf(p.w, "%s %s\n", label("Keys:"), strings.Join(s.Keys().Masked(), ", "))
	fmt.Fprintf(p.w, "%s %d\n", label("Prompts:"), len(s.Prompts()))
	fmt.Fprintf(p.w, "%s %d per prompt\n", label("Images:"), s.ImageCount())
	fmt.Fprintf(p.w, "%s %s\n", label("Aspect ratio:"), s.AspectRatio().Label())
	fmt.Fprintf(p.w, "%s %d\n", label("Current:"), s.Results().Len(results.SourceCurrent))
	fmt.Fprintf(p.w, "%s %d\n", label("History:"), s.Results().Len(results.SourceHistory))
	if s.Busy() {
		fmt.Fprintln(p.w, p.styles.Dim.Render("Generating..."))
	}
	if msg := s.Err(); msg != "" {
		fmt.Fprintln(p.w, p.styles.Failure.Render(msg))
	}
	fmt.Fprintln(p.w, p.styles.Dim.Render(fmt.Sprintf("Generate %d Images", s.PlannedImages())))
}

// AspectRatios lists the supported aspect ratios
func (p *Printer) AspectRatios(current imagen.AspectRatio) {
	for _, opt := range imagen.AspectRatios {
		marker := " "
		if opt.Value == current {
			marker = "*"
		}
		fmt.Fprintf(p.w, " %s %-6s %s\n", marker, opt.Value, p.styles.Dim.Render(opt.Label))
	}
}
