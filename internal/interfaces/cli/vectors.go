package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

// NewVectorsCommand creates the vectors subcommand tree for managing the
// backend's vector store.
func NewVectorsCommand(container *di.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectors",
		Short: "Inspect and manage the vector store",
	}

	cmd.AddCommand(newVectorsSourcesCommand(container))
	cmd.AddCommand(newVectorsDetailCommand(container))
	cmd.AddCommand(newVectorsDeleteCommand(container))
	cmd.AddCommand(newVectorsResetCommand(container))

	return cmd
}

func newVectorsSourcesCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List indexed sources with chunk counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := container.APIClient.GetVectorsSources(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sources: %s", userMessage(err))
			}

			if len(resp.Sources) == 0 {
				fmt.Println("Vector store is empty")
				return nil
			}

			for _, s := range resp.Sources {
				fmt.Printf("%s %s\n",
					labelStyle.Render(fmt.Sprintf("%5d chunks", s.NumChunks)), s.Source)
			}
			return nil
		},
	}
}

func newVectorsDetailCommand(container *di.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "detail SOURCE",
		Short: "List the stored chunks for one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := container.APIClient.GetVectorsSourceDetail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch source detail: %s", userMessage(err))
			}

			fmt.Printf("%s (%d chunks)\n", titleStyle.Render(resp.Source), resp.NumChunks)
			for i, chunk := range resp.Chunks {
				if limit > 0 && i >= limit {
					fmt.Println(dimStyle.Render(fmt.Sprintf("... and %d more", len(resp.Chunks)-limit)))
					break
				}
				id := chunk.ChunkID
				if id == "" {
					id = chunk.DocID
				}
				content := chunk.Content
				if len(content) > 160 {
					content = content[:160] + "…"
				}
				fmt.Printf("\n%s\n%s\n", dimStyle.Render(id), content)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many chunks (0 = all)")

	return cmd
}

func newVectorsDeleteCommand(container *di.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete SOURCE",
		Short: "Remove all chunks for a named source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(fmt.Sprintf("Delete all chunks for %q?", args[0])) {
				fmt.Println("Aborted")
				return nil
			}

			resp, err := container.APIClient.PostVectorsDeleteBySource(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete source: %s", userMessage(err))
			}

			fmt.Printf("%s Removed %d chunks for %q\n", successStyle.Render("✓"), resp.DeletedCount, resp.Source)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

func newVectorsResetCommand(container *di.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe the entire vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("Wipe the ENTIRE vector store?") {
				fmt.Println("Aborted")
				return nil
			}

			resp, err := container.APIClient.PostVectorsReset(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reset vector store: %s", userMessage(err))
			}

			if resp.Success {
				fmt.Printf("%s Vector store wiped\n", successStyle.Render("✓"))
			} else {
				fmt.Println(errorStyle.Render("Backend reported the reset did not complete"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}
