package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pohaoc29/GroceryShopperAI/internal/config"
	"github.com/pohaoc29/GroceryShopperAI/internal/dispatch"
	"github.com/pohaoc29/GroceryShopperAI/internal/extract"
	"github.com/pohaoc29/GroceryShopperAI/internal/llm"
)

var askProvider string

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send a prompt to a model provider",
	Long: `Send a prompt to a model provider configured through the server's
environment (LLM_MODEL, OPENAI_API_KEY, LLM_PROVIDERS_FILE, ...), using the
same system prompt as the chat bot.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		providers, err := llm.NewProviders(cmd.Context(), cfg.LLM.Providers)
		if err != nil {
			return err
		}

		logger := zerolog.Nop()
		if verbose {
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		}
		gateway := llm.NewGateway(providers, cfg.LLM.DefaultProvider, cfg.LLM.Timeout, logger)

		prompt, ok := dispatch.Trigger(strings.Join(args, " "))
		if !ok {
			prompt = strings.Join(args, " ")
		}
		reply, err := gateway.Complete(cmd.Context(),
			[]llm.Turn{llm.System(dispatch.SystemPrompt), llm.User(prompt)},
			llm.Params{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens},
			askProvider)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Recover a JSON object from model output on stdin",
	Long: `Read free-form model output from stdin and print the JSON object it
contains. Prints {} when no object can be recovered.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), extract.Object(string(data)))
	},
}

func init() {
	askCmd.Flags().StringVarP(&askProvider, "provider", "p", "", "provider name (default: LLM_MODEL)")
}
