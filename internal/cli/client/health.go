package client

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server and database health",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var resp healthResponse
	if err := client.Get(ctx, "/health", &resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(os.Stdout, resp)
	}

	fmt.Printf("Status:   %s\n", resp.Status)
	fmt.Printf("Version:  %s\n", resp.Version)
	fmt.Printf("Database: %s\n", resp.Database)
	if resp.Error != "" {
		fmt.Printf("Error:    %s\n", resp.Error)
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("server is %s", resp.Status)
	}
	return nil
}
