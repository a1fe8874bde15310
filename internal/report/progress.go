package report

import (
	"fmt"
	"io"
	"strings"

	"codeberg.org/snonux/bulkimagen/internal/batch"
)

const barWidth = 24

// Progress prints one update per finished job. On a terminal the bar is
// redrawn in place; otherwise every job gets its own line.
type Progress struct {
	w      io.Writer
	styles Styles
	inline bool
}

// NewProgress creates a progress printer writing to w
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		w:      w,
		styles: NewStyles(DefaultTheme),
		inline: writerIsTerminal(w),
	}
}

// JobDone implements batch.Observer
func (p *Progress) JobDone(jp batch.JobProgress) {
	status := p.styles.Success.Render(fmt.Sprintf("%d/%d images", jp.Group.Present(), len(jp.Group.Images)))
	if jp.Group.Error != "" {
		status = p.styles.Failure.Render(jp.Group.Error)
	}

	line := fmt.Sprintf("%s %3.0f%% (%d/%d) %s: %s",
		p.bar(jp.Percent), jp.Percent, jp.Index+1, jp.Total, truncate(jp.Group.Prompt, 40), status)

	if !p.inline {
		fmt.Fprintln(p.w, line)
		return
	}

	// Clear the previous line before redrawing
	fmt.Fprintf(p.w, "\r\033[K%s", line)
	if jp.Index+1 == jp.Total {
		fmt.Fprintln(p.w)
	}
}

func (p *Progress) bar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + p.styles.Bar.Render(strings.Repeat("#", filled)) + strings.Repeat(".", barWidth-filled) + "]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
