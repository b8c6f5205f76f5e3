package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

// NewHistoryCommand creates the history subcommand tree.
func NewHistoryCommand(container *di.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage conversation history",
	}

	cmd.AddCommand(newHistoryListCommand(container))
	cmd.AddCommand(newHistoryShowCommand(container))
	cmd.AddCommand(newHistoryDeleteCommand(container))
	cmd.AddCommand(newHistoryClearCommand(container))

	return cmd
}

func newHistoryListCommand(container *di.Container) *cobra.Command {
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversation summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := container.APIClient.GetHistory(cmd.Context(), offset, limit)
			if err != nil {
				return fmt.Errorf("failed to fetch history: %s", userMessage(err))
			}

			if len(summaries) == 0 {
				fmt.Println("No conversations yet")
				return nil
			}

			for _, s := range summaries {
				fmt.Printf("%s %s %s\n",
					labelStyle.Render(fmt.Sprintf("#%d", s.ID)),
					s.Title,
					dimStyle.Render(s.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")

	return cmd
}

func newHistoryShowCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one conversation with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id: %s", args[0])
			}

			detail, err := container.APIClient.GetConversationDetail(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch conversation: %s", userMessage(err))
			}

			fmt.Printf("%s %s\n", titleStyle.Render(detail.Title), dimStyle.Render(detail.CreatedAt))
			for _, msg := range detail.Messages {
				role := labelStyle.Render(msg.Role + ":")
				fmt.Printf("\n%s %s\n", role, msg.Content)
				if msg.Role == "assistant" && msg.Confidence != nil {
					meta := fmt.Sprintf("confidence %.1f%%", *msg.Confidence*100)
					if msg.RagIterations != nil {
						meta += fmt.Sprintf(", %d iterations", *msg.RagIterations)
					}
					fmt.Println(dimStyle.Render("  " + meta))
				}
			}
			return nil
		},
	}
}

func newHistoryDeleteCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id: %s", args[0])
			}

			err = container.APIClient.DeleteConversation(cmd.Context(), id)
			if err != nil {
				// A conversation that is already gone counts as deleted;
				// report it distinctly from real failures.
				var apiErr *domain.APIError
				if errors.As(err, &apiErr) && apiErr.IsNotFound() {
					fmt.Printf("Conversation #%d was already deleted\n", id)
					return nil
				}
				return fmt.Errorf("failed to delete conversation: %s", userMessage(err))
			}

			fmt.Printf("%s Deleted conversation #%d\n", successStyle.Render("✓"), id)
			return nil
		},
	}
}

func newHistoryClearCommand(container *di.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("Delete ALL conversations?") {
				fmt.Println("Aborted")
				return nil
			}

			if err := container.APIClient.DeleteAllHistory(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %s", userMessage(err))
			}

			fmt.Printf("%s All conversations deleted\n", successStyle.Render("✓"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
