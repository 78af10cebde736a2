package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docdex",
	Short: "Document knowledge base with hybrid semantic and keyword search",
	Long: `Docdex ingests PDF, Markdown, and plain text documents, indexes them
asynchronously through a durable job queue, and answers questions over
them with hybrid vector + full-text retrieval and an LLM assistant.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Best effort; a missing .env file is fine.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".docdex.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the process logger. Commands that speak a protocol
// on stdout (mcp) must log to stderr anyway, so stderr is the default.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
