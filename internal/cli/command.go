package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/bulkimagen/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bulkimagen [prompt...]",
		Short: "Bulk text-to-image generator with API key rotation",
		Long: `bulkimagen generates images for many prompts at once.

Every prompt is sent to the image generation API with the configured
number of images and aspect ratio. A pool of API keys is rotated to
spread the load, and a failing key falls back to the next one.

Examples:
  bulkimagen                               # Start an interactive session (default)
  bulkimagen "a red fox" "a snowy owl"     # Generate two prompts, write a zip archive
  bulkimagen --prompts prompts.txt -n 4    # One prompt per line, four images each
  bulkimagen --list-models                 # Show the image models of your key`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

// CreateSessionCommand creates the command that starts an interactive session
func CreateSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start an interactive generation session",
		Long: `session keeps API keys, prompts, results and history in memory
until you quit. Type 'help' inside the session for the list of commands.`,
		Args: cobra.NoArgs,
	}
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.bulkimagen.yaml)")
	pf.StringArrayVarP(&flags.Keys, "key", "k", nil, "API key (repeatable)")
	pf.StringVar(&flags.KeysFile, "keys-file", "", "Read API keys from file (one per line)")
	pf.StringVar(&flags.Provider, "provider", flags.Provider, "Image API: imagen or openai")
	pf.StringVar(&flags.Model, "model", "", "Model name (default depends on provider)")
	pf.IntVarP(&flags.ImageCount, "count", "n", flags.ImageCount, "Images per prompt (1-4)")
	pf.StringVarP(&flags.AspectRatio, "aspect-ratio", "a", flags.AspectRatio, "Aspect ratio: 1:1, 16:9, 9:16, 4:3 or 3:4")
	pf.IntVar(&flags.ImagesPerKey, "images-per-key", flags.ImagesPerKey, "Images per key before rotating to the next one")
	pf.Uint32Var(&flags.BreakerFailures, "breaker-failures", flags.BreakerFailures, "Consecutive failures before a key is skipped without a call for the cooldown (0 disables)")
	pf.DurationVar(&flags.BreakerCooldown, "breaker-cooldown", flags.BreakerCooldown, "How long a tripped key is skipped")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Local flags
	cmd.Flags().StringVarP(&flags.PromptsFile, "prompts", "p", "", "Read prompts from file (one per line)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", flags.Output, "Zip archive for the generated images")
	cmd.Flags().StringVar(&flags.Report, "report", "", "Print a run report: yaml or json")
	cmd.Flags().StringVar(&flags.ReportFile, "report-file", "", "Write the run report to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List the image models available to the first API key")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("api.provider", pf.Lookup("provider"))
	viper.BindPFlag("api.model", pf.Lookup("model"))
	viper.BindPFlag("generation.count", pf.Lookup("count"))
	viper.BindPFlag("generation.aspect_ratio", pf.Lookup("aspect-ratio"))
	viper.BindPFlag("generation.images_per_key", pf.Lookup("images-per-key"))
	viper.BindPFlag("breaker.failures", pf.Lookup("breaker-failures"))
	viper.BindPFlag("breaker.cooldown", pf.Lookup("breaker-cooldown"))
	viper.BindPFlag("output.file", cmd.Flags().Lookup("output"))
	viper.BindPFlag("output.report", cmd.Flags().Lookup("report"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".bulkimagen" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bulkimagen")
	}

	// Environment variables
	viper.SetEnvPrefix("BULKIMAGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
