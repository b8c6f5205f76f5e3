package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

// NewStatsCommand creates the stats command showing dashboard aggregates.
func NewStatsCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := container.APIClient.GetDashboardStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch stats: %s", userMessage(err))
			}

			fmt.Println(titleStyle.Render("Humbet usage"))
			fmt.Printf("%s %d\n", labelStyle.Render("Conversations:"), stats.TotalConversations)
			fmt.Printf("%s %d\n", labelStyle.Render("Messages:"), stats.TotalMessages)
			fmt.Printf("%s %.1f%%\n", labelStyle.Render("Avg confidence:"), stats.AvgConfidence*100)
			fmt.Printf("%s %d\n", labelStyle.Render("Feedback entries:"), stats.TotalFeedback)
			if stats.AvgFeedbackScore != nil {
				fmt.Printf("%s %.2f / 5\n", labelStyle.Render("Avg feedback:"), *stats.AvgFeedbackScore)
			}
			if stats.LastActivity != "" {
				fmt.Printf("%s %s\n", labelStyle.Render("Last activity:"), stats.LastActivity)
			}
			return nil
		},
	}
}

// NewFeedbackCommand creates the feedback command.
func NewFeedbackCommand(container *di.Container) *cobra.Command {
	var messageID, score int
	var comment string

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Attach a 1-5 score to a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if score < 1 || score > 5 {
				return fmt.Errorf("score must be between 1 and 5")
			}

			req := domain.FeedbackRequest{MessageID: messageID, Score: score}
			if comment != "" {
				req.Comment = &comment
			}

			resp, err := container.APIClient.SubmitFeedback(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to submit feedback: %s", userMessage(err))
			}

			fmt.Printf("%s Recorded score %d for message #%d\n", successStyle.Render("✓"), resp.Score, resp.MessageID)
			return nil
		},
	}

	cmd.Flags().IntVar(&messageID, "message", 0, "Message id to rate")
	cmd.Flags().IntVar(&score, "score", 0, "Score from 1 to 5")
	cmd.Flags().StringVar(&comment, "comment", "", "Optional comment")
	cmd.MarkFlagRequired("message")
	cmd.MarkFlagRequired("score")

	return cmd
}

// NewExportCommand creates the export command writing a JSON file.
func NewExportCommand(container *di.Container) *cobra.Command {
	var conversationID int
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download one or all conversations as a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var id *int
			if cmd.Flags().Changed("conversation") {
				id = &conversationID
			}

			data, err := container.APIClient.Export(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("export failed: %s", userMessage(err))
			}

			if output == "" {
				if id != nil {
					output = fmt.Sprintf("conversation_export_%d.json", *id)
				} else {
					output = fmt.Sprintf("conversation_export_all_%s.json", time.Now().Format("2006-01-02"))
				}
			}

			var pretty []byte
			var parsed any
			if err := json.Unmarshal(data, &parsed); err == nil {
				pretty, _ = json.MarshalIndent(parsed, "", "  ")
			} else {
				pretty = data
			}

			if err := os.WriteFile(output, pretty, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Printf("%s Wrote %s\n", successStyle.Render("✓"), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&conversationID, "conversation", 0, "Export only this conversation")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default is derived from the export scope)")

	return cmd
}

// NewIngestCommand creates the ingest command uploading documents.
func NewIngestCommand(container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Upload PDF/HTML documents for indexing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}

				resp, err := container.APIClient.Ingest(cmd.Context(), filepath.Base(path), f)
				f.Close()
				if err != nil {
					return fmt.Errorf("failed to ingest %s: %s", path, userMessage(err))
				}

				fmt.Printf("%s Indexed %s as %q (%d chunks)\n",
					successStyle.Render("✓"), path, resp.Source, resp.NumChunks)
			}
			return nil
		},
	}
}

// evaluateFile is the YAML question-set format consumed by evaluate.
type evaluateFile struct {
	Questions          []string   `yaml:"questions"`
	GroundTruthAnswers []string   `yaml:"ground_truth_answers"`
	RelevantDocIDs     [][]string `yaml:"relevant_doc_ids"`
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(container *di.Container) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run retrieval/generation evaluation over a question set",
		Example: `  humbet evaluate -f questions.yaml

questions.yaml:
  questions:
    - "Apa visi sekolah?"
  ground_truth_answers:
    - "Menjadi sekolah unggulan."
  relevant_doc_ids:
    - ["doc-1", "doc-2"]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadEvaluateFile(file)
			if err != nil {
				return err
			}

			resp, err := container.APIClient.PostEvaluate(cmd.Context(), domain.EvaluateRequest{
				Questions:          spec.Questions,
				GroundTruthAnswers: spec.GroundTruthAnswers,
				RelevantDocIDs:     spec.RelevantDocIDs,
			})
			if err != nil {
				return fmt.Errorf("evaluation failed: %s", userMessage(err))
			}

			fmt.Println(titleStyle.Render("Evaluation results"))
			fmt.Printf("%s %.3f\n", labelStyle.Render("Hit rate:"), resp.HitRate)
			fmt.Printf("%s %.3f\n", labelStyle.Render("MRR:"), resp.MRR)
			if len(resp.Ragas) > 0 {
				fmt.Println(labelStyle.Render("RAGAS:"))
				names := make([]string, 0, len(resp.Ragas))
				for name := range resp.Ragas {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("  %-24s %.3f\n", name, resp.Ragas[name])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML question set")
	cmd.MarkFlagRequired("file")

	return cmd
}
