package client

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

type historyClause struct {
	ChunkID         string  `json:"chunk_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
}

type historyAnswer struct {
	Text     string          `json:"text"`
	Decision string          `json:"decision"`
	Amount   *float64        `json:"amount,omitempty"`
	Clauses  []historyClause `json:"clauses"`
}

type historyItem struct {
	QueryID   string          `json:"query_id"`
	Question  string          `json:"question"`
	CreatedAt string          `json:"created_at"`
	Answers   []historyAnswer `json:"answers"`
}

type historyPage struct {
	Items   []historyItem `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"has_more"`
}

func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <document-id>",
		Short: "Show the questions asked about a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "l", 0, "Maximum number of queries to return")
	cmd.Flags().StringP("cursor", "c", "", "Cursor for the next page")
	return cmd
}

func historyPath(documentID, cursor string, limit int) string {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/documents/" + url.PathEscape(documentID) + "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	cursor, _ := cmd.Flags().GetString("cursor")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var resp struct {
		Data historyPage `json:"data"`
	}
	if err := client.Get(ctx, historyPath(args[0], cursor, limit), &resp); err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(os.Stdout, resp.Data)
	}

	for _, item := range resp.Data.Items {
		fmt.Printf("[%s] %s\n", item.CreatedAt, item.Question)
		for _, a := range item.Answers {
			fmt.Printf("  %s\n", a.Text)
		}
	}
	if resp.Data.HasMore {
		fmt.Printf("\nNext page: --cursor %s\n", resp.Data.Cursor)
	}
	return nil
}
