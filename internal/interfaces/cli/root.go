package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// NewRootCommand builds the base command with all subcommands attached.
func NewRootCommand(container *di.Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "humbet",
		Short: "Humbet CLI - terminal front-end for the Humbet RAG assistant",
		Long: `Humbet CLI is a terminal client for the Humbet retrieval-augmented
question-answering backend.

It provides an interactive chat with a live view of the backend's reasoning
trace, plus administrative commands for ingestion, vector-store management,
evaluation metrics, history and feedback.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("api-url") {
				apiURL, _ := cmd.Flags().GetString("api-url")
				container.ApplyAPIBaseURLOverride(apiURL)
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $HOME/.humbet/config.json)")
	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL override")

	rootCmd.AddCommand(NewChatCommand(container))
	rootCmd.AddCommand(NewHistoryCommand(container))
	rootCmd.AddCommand(NewStatsCommand(container))
	rootCmd.AddCommand(NewFeedbackCommand(container))
	rootCmd.AddCommand(NewExportCommand(container))
	rootCmd.AddCommand(NewEvaluateCommand(container))
	rootCmd.AddCommand(NewIngestCommand(container))
	rootCmd.AddCommand(NewVectorsCommand(container))
	rootCmd.AddCommand(NewAuthCommand(container))
	rootCmd.AddCommand(NewLogsCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary.
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command and exits non-zero on failure.
func Execute(container *di.Container) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
