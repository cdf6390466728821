package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docqa/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "docqa CLI - ask questions about PDF documents",
		Long: `docqa sends documents and questions to a docqad server.

Environment variables:
  DOCQA_API_TOKEN   Bearer token for authentication (required)
  DOCQA_API_URL     API base URL (default: http://localhost:8000)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout (default 10m)")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.HistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
