// Package shell is the interactive front end of a session: a line based
// command loop standing in for the browser page of a web front end.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/snonux/bulkimagen/internal/archive"
	"codeberg.org/snonux/bulkimagen/internal/report"
	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/session"
)

const helpText = `Commands:
  keys add KEY...                add API keys
  keys load FILE                 add API keys from a file, one per line
  keys remove KEY|N              remove a key by value or 1-based number
  keys list                      show the masked keys
  prompts add TEXT               append one prompt
  prompts load FILE              replace the prompts with a file's lines
  prompts clear                  remove all prompts
  prompts list                   show the prompts
  count [N]                      show or set images per prompt (1-4)
  ratio [R]                      show or set the aspect ratio
  generate                       run every prompt
  list [current|history]         show result groups
  rewrite SRC G I [PROMPT]       regenerate image I of group G
  save SRC G I [DIR]             save one image as JPEG
  export SRC [FILE]              write results as a zip archive
  history clear                  drop the history
  show                           show the session state
  help                           show this help
  quit                           leave the session
`

var errQuit = errors.New("quit")

// Shell reads commands from in and applies them to a session
type Shell struct {
	sess    *session.Session
	in      io.Reader
	out     io.Writer
	printer *report.Printer

	mu     sync.Mutex
	cancel context.CancelFunc // cancels the running generate or rewrite
}

// New creates a shell for sess
func New(sess *session.Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		sess:    sess,
		in:      in,
		out:     out,
		printer: report.NewPrinter(out),
	}
}

// Run processes commands until quit, end of input or ctx is done.
// Ctrl-C stops the running generate or rewrite and returns to the prompt,
// so the results of the session stay available for export.
func (sh *Shell) Run(ctx context.Context) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-interrupts:
				sh.interrupt()
			case <-done:
				return
			}
		}
	}()

	fmt.Fprintln(sh.out, "bulkimagen session. Type 'help' for commands.")

	scanner := bufio.NewScanner(sh.in)
	for {
		fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := sh.Exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
		}
	}
}

// interrupt cancels the running command. With nothing running it only
// reminds the user how to leave.
func (sh *Shell) interrupt() {
	sh.mu.Lock()
	cancel := sh.cancel
	sh.mu.Unlock()

	if cancel == nil {
		fmt.Fprintln(sh.out, "\n(type 'quit' to leave the session)")
		return
	}
	cancel()
}

// begin derives the context of a long running command
func (sh *Shell) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	sh.mu.Lock()
	sh.cancel = cancel
	sh.mu.Unlock()

	return ctx, func() {
		sh.mu.Lock()
		sh.cancel = nil
		sh.mu.Unlock()
		cancel()
	}
}

// Exec runs a single command line
func (sh *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprint(sh.out, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "keys":
		return sh.keys(args)
	case "prompts":
		return sh.prompts(line, args)
	case "count":
		return sh.count(args)
	case "ratio":
		return sh.ratio(args)
	case "generate":
		return sh.generate(ctx)
	case "list":
		return sh.list(args)
	case "rewrite":
		return sh.rewrite(ctx, args)
	case "save":
		return sh.save(args)
	case "export":
		return sh.export(args)
	case "history":
		if len(args) != 1 || args[0] != "clear" {
			return fmt.Errorf("usage: history clear")
		}
		fmt.Fprintf(sh.out, "Removed %d group(s) from history\n", sh.sess.ClearHistory())
		return nil
	case "show":
		sh.printer.State(sh.sess)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func (sh *Shell) keys(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: keys add|load|remove|list")
	}
	store := sh.sess.Keys()

	switch args[0] {
	case "add":
		n := store.Add(args[1:]...)
		fmt.Fprintf(sh.out, "Added %d key(s), %d total\n", n, store.Len())
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("usage: keys load FILE")
		}
		n, err := store.AddFile(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Added %d key(s), %d total\n", n, store.Len())
	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: keys remove KEY|N")
		}
		// A key value wins over a position so numeric keys stay removable
		if !store.Remove(args[1]) {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("key not found")
			}
			if _, ok := store.RemoveAt(n - 1); !ok {
				return fmt.Errorf("no key number %d", n)
			}
		}
		fmt.Fprintf(sh.out, "%d key(s) left\n", store.Len())
	case "list":
		for i, k := range store.Masked() {
			fmt.Fprintf(sh.out, "  %d. %s\n", i+1, k)
		}
		if store.Len() == 0 {
			fmt.Fprintln(sh.out, "  (no keys)")
		}
	default:
		return fmt.Errorf("unknown keys command %q", args[0])
	}
	return nil
}

func (sh *Shell) prompts(line string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: prompts add|load|clear|list")
	}

	switch args[0] {
	case "add":
		// Keep the prompt exactly as typed after "prompts add"
		_, rest, _ := strings.Cut(strings.TrimSpace(line), "add")
		prompt := strings.TrimSpace(rest)
		if prompt == "" {
			return fmt.Errorf("usage: prompts add TEXT")
		}
		text := sh.sess.PromptText()
		if strings.TrimSpace(text) != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		sh.sess.SetPromptText(text + prompt)
		fmt.Fprintf(sh.out, "%d prompt(s)\n", len(sh.sess.Prompts()))
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("usage: prompts load FILE")
		}
		n, err := sh.sess.LoadPromptFile(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Loaded %d prompt(s)\n", n)
	case "clear":
		sh.sess.SetPromptText("")
	case "list":
		for i, p := range sh.sess.Prompts() {
			fmt.Fprintf(sh.out, "  %d. %s\n", i+1, p)
		}
	default:
		return fmt.Errorf("unknown prompts command %q", args[0])
	}
	return nil
}

func (sh *Shell) count(args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(sh.out, "%d image(s) per prompt\n", sh.sess.ImageCount())
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid image count %q", args[0])
	}
	return sh.sess.SetImageCount(n)
}

func (sh *Shell) ratio(args []string) error {
	if len(args) == 0 {
		sh.printer.AspectRatios(sh.sess.AspectRatio())
		return nil
	}
	return sh.sess.SetAspectRatio(args[0])
}

func (sh *Shell) generate(ctx context.Context) error {
	ctx, end := sh.begin(ctx)
	defer end()

	fmt.Fprintf(sh.out, "Generating %d images...\n", sh.sess.PlannedImages())

	summary, err := sh.sess.StartGeneration(ctx, report.NewProgress(sh.out))
	if summary != nil {
		sh.printer.Summary(summary)
	}
	if err != nil {
		if msg := sh.sess.Err(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	return nil
}

func (sh *Shell) list(args []string) error {
	if len(args) == 0 {
		sh.printer.Groups("Current results", sh.sess.Results().Current())
		sh.printer.Groups("History", sh.sess.Results().History())
		return nil
	}
	source, err := results.ParseSource(args[0])
	if err != nil {
		return err
	}
	title := "Current results"
	if source == results.SourceHistory {
		title = "History"
	}
	sh.printer.Groups(title, sh.sess.Results().Groups(source))
	return nil
}

// slot parses "SRC G I" with 1-based group and image numbers
func slot(args []string) (results.Source, int, int, error) {
	if len(args) < 3 {
		return "", 0, 0, fmt.Errorf("expected SRC GROUP IMAGE")
	}
	source, err := results.ParseSource(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	g, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid group number %q", args[1])
	}
	i, err := strconv.Atoi(args[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid image number %q", args[2])
	}
	return source, g - 1, i - 1, nil
}

func (sh *Shell) rewrite(ctx context.Context, args []string) error {
	source, g, i, err := slot(args)
	if err != nil {
		return fmt.Errorf("usage: rewrite current|history G I [PROMPT]: %w", err)
	}
	target, err := sh.sess.SelectRewrite(source, g, i)
	if err != nil {
		return err
	}

	prompt := strings.Join(args[3:], " ")
	if prompt == "" {
		prompt = target.Prompt
	}
	fmt.Fprintf(sh.out, "Rewriting image %d of %q with %q...\n", i+1, target.Prompt, prompt)
	ctx, end := sh.begin(ctx)
	defer end()
	if err := sh.sess.Rewrite(ctx, target, prompt); err != nil {
		if msg := sh.sess.Err(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	fmt.Fprintln(sh.out, "Image replaced")
	return nil
}

func (sh *Shell) save(args []string) error {
	source, g, i, err := slot(args)
	if err != nil {
		return fmt.Errorf("usage: save current|history G I [DIR]: %w", err)
	}
	dir := "."
	if len(args) > 3 {
		dir = args[3]
	}
	path, err := sh.sess.SaveImage(source, g, i, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Saved %s\n", path)
	return nil
}

func (sh *Shell) export(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: export current|history [FILE]")
	}
	source, err := results.ParseSource(args[0])
	if err != nil {
		return err
	}
	file := ""
	if len(args) == 2 {
		file = args[1]
	}

	var path string
	if source == results.SourceHistory {
		path, err = sh.sess.ExportHistory(file)
	} else {
		path, err = sh.sess.ExportCurrent(file)
	}
	if errors.Is(err, archive.ErrNothingToExport) {
		return fmt.Errorf("no %s results to export", source)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Wrote %s\n", path)
	return nil
}
