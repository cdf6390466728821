package client

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const runPath = "/api/v1/hackrx/run"

type runRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type runResponse struct {
	Answers            []string `json:"answers"`
	RetrievalAvailable bool     `json:"retrieval_available"`
}

func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask questions about a PDF document",
		Long: `Send a document URL and one or more questions to the server and print the answers.

Examples:
  docqa ask -d https://example.com/policy.pdf -q "What is the grace period?"
  docqa ask -d https://example.com/policy.pdf -q "Is maternity covered?" -q "What is the waiting period?"`,
		RunE: runAsk,
	}

	cmd.Flags().StringP("document", "d", "", "URL of the PDF document (required)")
	cmd.Flags().StringArrayP("question", "q", nil, "Question to ask (repeatable)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("question")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	document, _ := cmd.Flags().GetString("document")
	questions, _ := cmd.Flags().GetStringArray("question")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := ask(cmd.Context(), client, document, questions)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, resp)
	}
	printAnswers(os.Stdout, questions, resp)
	return nil
}

func ask(ctx context.Context, client *APIClient, document string, questions []string) (*runResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var resp runResponse
	if err := client.Post(ctx, runPath, runRequest{Documents: document, Questions: questions}, &resp); err != nil {
		return nil, fmt.Errorf("ask failed: %w", err)
	}
	return &resp, nil
}

func printAnswers(w io.Writer, questions []string, resp *runResponse) {
	for i, answer := range resp.Answers {
		if i < len(questions) {
			fmt.Fprintf(w, "Q%d: %s\n", i+1, questions[i])
		}
		fmt.Fprintf(w, "A%d: %s\n\n", i+1, answer)
	}
	if !resp.RetrievalAvailable {
		fmt.Fprintln(w, "Note: document search was unavailable; answers were generated without retrieved clauses.")
	}
}
