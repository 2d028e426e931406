package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pohaoc29/GroceryShopperAI/clients/go/gro"
)

var (
	// Global flags
	serverURL string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "grochat",
	Short: "Command line client for GroceryShopperAI",
	Long: `grochat - talk to a GroceryShopperAI server, or to its model providers directly.

Mention @gro in a message to get a reply from the bot.

Examples:
  grochat signup alice
  grochat post 1 "@gro what goes in a BBQ marinade?"
  grochat tail 1
  grochat plan 1 --kind procurement
  grochat ask --provider openai "suggest a weeknight dinner"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultURL := os.Getenv("GRO_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultURL, "server base URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(askCmd, extractCmd, signupCmd, loginCmd, roomsCmd, postCmd, tailCmd, planCmd)
}

func newClient() *gro.Client {
	return gro.NewClient(serverURL)
}

func parseRoomID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("room id must be an integer: %q", arg)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
