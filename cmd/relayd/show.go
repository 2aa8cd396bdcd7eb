package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/realflats/relay/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <request-id>",
	Short: "Show one request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := apiClient.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(req)
		}

		fmt.Printf("%s  %s\n", req.ID, ui.RenderStatus(req.Status))
		fmt.Printf("author:  %s\n", req.AuthorID)
		fmt.Printf("created: %s\n", req.CreatedAt)
		for _, attr := range req.Attrs {
			label := attr.Label
			if label == "" {
				label = attr.Key
			}
			fmt.Printf("  %s: %s\n", label, attr.Value)
		}
		if req.Publication != nil {
			fmt.Printf("posted:  %s (%s)\n", req.Publication.Surface, req.Publication.MessageID)
		}
		if req.Status == "closed" {
			fmt.Printf("closed:  %s", req.ClosedAt)
			if req.ClosedReason != "" {
				fmt.Printf("  (%s)", req.ClosedReason)
			}
			fmt.Println()
		}
		return nil
	},
}
