// relayd is the relay and lifecycle daemon behind the Real Flats housing
// bot, plus a small operator CLI for inspecting it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/realflats/relay/internal/client"
	"github.com/realflats/relay/internal/ui"
)

var (
	httpURL    string
	jsonOutput bool
	noColor    bool

	apiClient *client.Client
)

func defaultHTTPURL() string {
	if s := os.Getenv("RELAY_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "relayd <command>",
	Short: "Housing-request relay daemon and operator CLI",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		apiClient = client.New(httpURL)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "relayd HTTP API base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON instead of text")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
