package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// IngestCmd indexes a document without asking questions.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Fetch and index a PDF document",
		Long:  "Fetch, extract, chunk and index the PDF at url. Already indexed documents are reused.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{checkEmbedder: true})
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.coordinator.EnsureIngested(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(map[string]any{
			"document_id": result.Document.ID,
			"url":         result.Document.URL,
			"chunks":      result.ChunkCount,
			"reused":      result.Reused,
			"degraded":    result.Degraded,
		})
	}

	fmt.Printf("Document: %s\n", result.Document.ID)
	fmt.Printf("URL:      %s\n", result.Document.URL)
	if result.Reused {
		fmt.Println("Status:   already indexed")
		return nil
	}
	fmt.Printf("Chunks:   %d\n", result.ChunkCount)
	if result.Degraded {
		fmt.Println("Warning:  vector index unavailable, chunks stored with placeholder ids")
	}
	return nil
}

// HistoryCmd prints the recorded questions and answers of a document.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <document-id>",
		Short: "Show query history for a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of queries to return")
	cmd.Flags().StringP("cursor", "c", "", "Cursor for the next page")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")
	cursor, _ := cmd.Flags().GetString("cursor")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	page, err := a.coordinator.History(ctx, args[0], cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(page)
	}

	if len(page.Items) == 0 {
		fmt.Println("No queries recorded.")
		return nil
	}

	loc := cfg.Location()
	for _, entry := range page.Items {
		fmt.Printf("[%s] Q: %s\n", entry.Query.CreatedAt.In(loc).Format(time.DateTime), entry.Query.Text)
		for _, answer := range entry.Answers {
			fmt.Printf("  A: %s\n", answer.Text)
			if answer.Decision != "" && answer.Decision != domain.DecisionNotApplicable {
				fmt.Printf("     decision: %s", answer.Decision)
				if answer.Amount != nil {
					fmt.Printf(" (amount %.2f)", *answer.Amount)
				}
				fmt.Println()
			}
			for _, clause := range answer.Clauses {
				fmt.Printf("     - %.3f %s\n", clause.SimilarityScore, firstLine(clause.ClauseText, 80))
			}
		}
	}

	if page.HasMore {
		fmt.Printf("\nNext page: --cursor %s\n", page.NextCursor)
	}
	return nil
}

// ChunksCmd lists the stored chunks of a document.
func ChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks <document-id>",
		Short: "List the chunks of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runChunks,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	return cmd
}

func runChunks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	chunks, err := a.coordinator.Chunks(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(chunks)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Index", "Vector ID", "Text"})
	table.SetAutoWrapText(false)
	for _, c := range chunks {
		table.Append([]string{strconv.Itoa(c.ChunkIndex), c.VectorID, firstLine(c.Text, 60)})
	}
	table.Render()
	return nil
}

// PurgeCmd removes a document's vectors, chunks and archived PDF.
func PurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge <document-id>",
		Short: "Delete a document's vectors, chunks and archive",
		Long:  "Delete the indexed vectors, stored chunks and archived PDF of a document. With --delete-document the document row and its query history are removed too.",
		Args:  cobra.ExactArgs(1),
		RunE:  runPurge,
	}
	cmd.Flags().Bool("delete-document", false, "Also delete the document and its query history")
	return cmd
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	deleteDocument, _ := cmd.Flags().GetBool("delete-document")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.coordinator.Purge(ctx, args[0], deleteDocument)
	if err != nil {
		return fmt.Errorf("failed to purge document: %w", err)
	}

	fmt.Printf("Purged document %s (%d chunks)\n", result.DocumentID, result.ChunksDeleted)
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return domain.TruncateRunes(s, max)
}
