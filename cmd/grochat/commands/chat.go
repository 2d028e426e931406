package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pohaoc29/GroceryShopperAI/clients/go/gro"
)

// readPassword returns GRO_PASSWORD when set, otherwise prompts on the
// terminal without echo.
func readPassword() (string, error) {
	if pw := os.Getenv("GRO_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal; set GRO_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func authCommand(use, short string, call func(*gro.Client, context.Context, string, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword()
			if err != nil {
				return err
			}
			c := newClient()
			if err := call(c, cmd.Context(), args[0], password); err != nil {
				return err
			}
			if err := c.SaveToken(); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Logged in as %s\n", args[0])
			return nil
		},
	}
}

var (
	signupCmd = authCommand("signup", "Create an account and save its token", (*gro.Client).Signup)
	loginCmd  = authCommand("login", "Log in and save the token", (*gro.Client).Login)
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List your rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rooms, err := newClient().Rooms(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range rooms {
			fmt.Printf("  %d  %s\n", r.ID, r.Name)
		}
		return nil
	},
}

var postCmd = &cobra.Command{
	Use:   "post <room-id> <message>",
	Short: "Post a message to a room",
	Long: `Post a message to a room. Mention @gro anywhere in the message to ask
the bot; its reply shows up in 'grochat tail'.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomID(args[0])
		if err != nil {
			return err
		}
		id, err := newClient().PostMessage(cmd.Context(), roomID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "posted message %d\n", id)
		}
		return nil
	},
}

var tailHistory int

var tailCmd = &cobra.Command{
	Use:   "tail <room-id>",
	Short: "Print a room's live messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomID(args[0])
		if err != nil {
			return err
		}
		c := newClient()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if tailHistory > 0 {
			msgs, err := c.Messages(ctx, roomID, tailHistory)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				printMessage(m)
			}
		}

		err = c.Subscribe(ctx, roomID, func(ev gro.Event) {
			printMessage(ev.Message)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var (
	planKind     string
	planGoal     string
	planProvider string
)

var planCmd = &cobra.Command{
	Use:   "plan <room-id>",
	Short: "Build a plan from a room's chat",
	Long: `Ask the server to turn a room's recent chat into a structured plan.

Kinds:
  goal         the event the group is planning
  group        tasks with assignees, timeline and narrative
  procurement  a shopping list
  invites      who else should help`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomID(args[0])
		if err != nil {
			return err
		}
		plan, err := newClient().Plan(cmd.Context(), roomID, gro.PlanRequest{
			Kind:     planKind,
			Goal:     planGoal,
			Provider: planProvider,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), plan)
	},
}

func printMessage(m gro.Message) {
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt, m.DisplayName, m.Content)
}

func init() {
	tailCmd.Flags().IntVarP(&tailHistory, "history", "n", 20, "recent messages to print first")

	planCmd.Flags().StringVarP(&planKind, "kind", "k", "group", "plan kind: goal, group, procurement, invites")
	planCmd.Flags().StringVar(&planGoal, "goal", "", "goal to plan for (inferred from the chat when empty)")
	planCmd.Flags().StringVarP(&planProvider, "provider", "p", "", "model provider (server default when empty)")
}
