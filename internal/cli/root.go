package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/logging"
)

var (
	verbose bool
	cfgFile string
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wortklang",
	Short: "Vocabulary-to-video pipeline for language learning content",
	Long: `Wortklang turns a vocabulary table into narrated learning videos.

For every word it generates example sentences per distinct meaning with
an LLM, synthesizes narrated audio, renders text-slide video segments,
and batches them into combined videos ready for publishing.

The stages hand off through files (CSV table, MP3 narration, MP4 video)
and can be run separately or end to end with the run command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		initConfig(cfgFile)
	})

	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringP("output", "o", "", "Output file or directory")
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.wortklang.yaml)")
}
