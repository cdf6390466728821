package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docqa/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docqad",
		Short: "Document question answering daemon",
		Long:  "docqad runs the document retrieval API server and manages ingested documents",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.HistoryCmd())
	rootCmd.AddCommand(admin.ChunksCmd())
	rootCmd.AddCommand(admin.PurgeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
