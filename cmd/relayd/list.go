package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/realflats/relay/internal/client"
	"github.com/realflats/relay/internal/ui"
)

var (
	listAuthor string
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := apiClient.List(cmd.Context(), client.ListOptions{
			AuthorID: listAuthor,
			Status:   listStatus,
			Limit:    listLimit,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(reqs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tAUTHOR\tCREATED")
		for _, req := range reqs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				req.ID, ui.RenderStatus(req.Status), req.AuthorID, ui.RenderMuted(req.CreatedAt))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listAuthor, "author", "", "filter by author id")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (active|closed)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of results")
}
