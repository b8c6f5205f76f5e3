package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nudriin/humbet-cli/internal/core/event"
	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

// NewLogsCommand creates the logs command tailing the reasoning-trace
// stream to stdout.
func NewLogsCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Tail the backend's live reasoning-trace stream",
		Long: `Connect to the backend's event stream and print every reasoning-trace
event as it arrives. The stream is global per backend instance, not scoped
to one query. Reconnects automatically on transient failures until the
backoff schedule is exhausted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := container.NewStreamClient()
			defer client.Close()

			client.Connect(
				func(e event.StreamEvent) {
					prefix := stageStyle.Render(fmt.Sprintf("[%s]", e.Stage))
					if e.Time != "" {
						prefix = dimStyle.Render(e.Time) + " " + prefix
					}
					fmt.Printf("%s %s\n", prefix, e.Describe())
				},
				func(err error) {
					fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("stream error: %v", err)))
				},
				func() {
					fmt.Fprintln(os.Stderr, dimStyle.Render("connected to "+client.URL()))
				},
			)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigChan:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
}
