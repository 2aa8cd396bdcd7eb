package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	closeActor  string
	closeReason string
)

var closeCmd = &cobra.Command{
	Use:   "close <request-id>",
	Short: "Close a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := apiClient.Close(cmd.Context(), args[0], closeActor, closeReason)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(req)
		}
		fmt.Printf("%s closed\n", req.ID)
		return nil
	},
}

func init() {
	closeCmd.Flags().StringVar(&closeActor, "actor", "system", "actor id performing the close")
	closeCmd.Flags().StringVar(&closeReason, "reason", "", "close reason")
}
