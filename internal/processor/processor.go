package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"codeberg.org/snonux/bulkimagen/internal/batch"
	"codeberg.org/snonux/bulkimagen/internal/cli"
	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/models"
	"codeberg.org/snonux/bulkimagen/internal/report"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
	"codeberg.org/snonux/bulkimagen/internal/session"
	"codeberg.org/snonux/bulkimagen/internal/shell"
)

// Processor handles the main generation logic
type Processor struct {
	flags    *cli.Flags
	settings *cli.Settings
	logger   *slog.Logger
	out      io.Writer

	newGenerator func(*imagen.Config) (imagen.Generator, error)
}

// NewProcessor creates a processor from the parsed flags and the
// effective configuration
func NewProcessor(flags *cli.Flags, settings *cli.Settings, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		flags:        flags,
		settings:     settings,
		logger:       logger,
		out:          os.Stdout,
		newGenerator: imagen.NewGenerator,
	}
}

// NewSession creates a session holding every configured API key
func (p *Processor) NewSession() (*session.Session, error) {
	gen, err := p.newGenerator(p.settings.GeneratorConfig())
	if err != nil {
		return nil, err
	}

	opts := []rotation.Option{rotation.WithLogger(p.logger)}
	if breakers := rotation.NewBreakers(p.settings.Breaker, p.logger); breakers != nil {
		opts = append(opts, rotation.WithBreakers(breakers))
	}

	sess := session.New(rotation.NewDispatcher(gen, opts...), p.settings.SessionConfig(), p.logger)

	apiKeys, err := cli.GetAPIKeys(p.flags, p.settings.Provider)
	if err != nil {
		return nil, err
	}
	sess.Keys().Add(apiKeys...)

	p.logger.Debug("session created",
		"provider", gen.Name(),
		"keys", len(apiKeys),
		"count", sess.ImageCount(),
		"aspect_ratio", sess.AspectRatio())
	return sess, nil
}

// ProcessBatch generates images for the prompts of the prompts file and
// args, then writes the results to the output archive
func (p *Processor) ProcessBatch(ctx context.Context, args []string) error {
	sess, err := p.NewSession()
	if err != nil {
		return err
	}

	var lines []string
	if p.flags.PromptsFile != "" {
		text, err := batch.ReadPromptFile(p.flags.PromptsFile)
		if err != nil {
			return err
		}
		lines = append(lines, text)
	}
	lines = append(lines, args...)
	sess.SetPromptText(strings.Join(lines, "\n"))

	fmt.Fprintf(p.out, "Generating %d images for %d prompts with %d key(s)...\n",
		sess.PlannedImages(), len(sess.Prompts()), sess.Keys().Len())

	summary, runErr := sess.StartGeneration(ctx, report.NewProgress(p.out))
	if summary == nil {
		if errors.Is(runErr, batch.ErrNoPrompts) || errors.Is(runErr, batch.ErrNoKeys) {
			return fmt.Errorf("%s (%w)", session.MsgMissingInput, runErr)
		}
		return runErr
	}

	report.NewPrinter(p.out).Summary(summary)

	archivePath := ""
	if summary.ImagesGenerated > 0 {
		archivePath, err = sess.ExportCurrent(p.settings.Output)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "Images saved to: %s\n", archivePath)
	} else {
		fmt.Fprintln(p.out, "No images were generated, nothing to save")
	}

	if err := p.writeReport(summary, archivePath); err != nil {
		return err
	}
	return runErr
}

func (p *Processor) writeReport(summary *session.Summary, archivePath string) error {
	if p.settings.Report == "" {
		return nil
	}
	format, err := report.ParseFormat(p.settings.Report)
	if err != nil {
		return err
	}

	opts := report.OutputOptions{Format: format, File: p.flags.ReportFile}
	if opts.File == "" {
		opts.Writer = p.out
	}
	return report.Output(report.NewRunReport(summary, p.settings.Provider, archivePath), opts)
}

// RunSession starts an interactive session reading commands from in
func (p *Processor) RunSession(ctx context.Context, in io.Reader) error {
	sess, err := p.NewSession()
	if err != nil {
		return err
	}
	if p.flags.PromptsFile != "" {
		if _, err := sess.LoadPromptFile(p.flags.PromptsFile); err != nil {
			return err
		}
	}
	return shell.New(sess, in, p.out).Run(ctx)
}

// ListModels prints the image models available to the first API key
func (p *Processor) ListModels(ctx context.Context) error {
	apiKeys, err := cli.GetAPIKeys(p.flags, p.settings.Provider)
	if err != nil {
		return err
	}
	key := ""
	if len(apiKeys) > 0 {
		key = apiKeys[0]
	}
	return models.NewLister(p.settings.Provider, key).Print(ctx, p.out)
}
