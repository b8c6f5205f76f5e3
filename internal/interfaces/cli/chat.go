package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

// NewChatCommand creates the interactive chat command.
func NewChatCommand(container *di.Container) *cobra.Command {
	var conversationID int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with a live thinking timeline",
		Long: `Open an interactive chat session against the Humbet backend.

While the backend works on an answer, the live reasoning trace (query
refinement, retrieval, reranking, adaptive-retrieval triggers, generation)
is shown in a timeline panel fed by the backend's event stream.

Keys:
  enter    send the query
  tab      toggle the timeline panel
  ctrl+f   rate the last answer (then press 1-5)
  esc      quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var convID *int
			if cmd.Flags().Changed("conversation") {
				convID = &conversationID
			}

			model := newChatModel(container, convID)
			program := tea.NewProgram(model, tea.WithAltScreen())

			if _, err := program.Run(); err != nil {
				return fmt.Errorf("chat session failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&conversationID, "conversation", 0, "Resume an existing conversation")

	return cmd
}
