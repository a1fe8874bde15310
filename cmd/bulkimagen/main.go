package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/bulkimagen/internal/cli"
	"codeberg.org/snonux/bulkimagen/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)
	sessionCmd := cli.CreateSessionCommand()
	rootCmd.AddCommand(sessionCmd)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), args, flags)
	}
	sessionCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return newProcessor(flags).RunSession(cmd.Context(), os.Stdin)
	}

	// SIGTERM ends any command. Ctrl-C is handled per command: it stops a
	// one-shot run, whose finished groups are still saved, and inside a
	// session it stops only the running generation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newProcessor(flags *cli.Flags) *processor.Processor {
	level := slog.LevelInfo
	if flags.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return processor.NewProcessor(flags, cli.LoadSettings(), logger)
}

func runCommand(ctx context.Context, args []string, flags *cli.Flags) error {
	proc := newProcessor(flags)

	// No input provided - start an interactive session by default
	if !flags.ListModels && flags.PromptsFile == "" && len(args) == 0 {
		return proc.RunSession(ctx, os.Stdin)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	// Handle --list-models flag
	if flags.ListModels {
		return proc.ListModels(ctx)
	}

	return proc.ProcessBatch(ctx, args)
}
