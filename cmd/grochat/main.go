// Package main is the entry point for the grochat CLI.
//
// Usage:
//
//	grochat [flags] <command> [args]
//
// Commands:
//
//	ask      - Send a prompt straight to a configured model provider
//	extract  - Recover a JSON object from model output on stdin
//	signup   - Create an account and save its token
//	login    - Log in and save the token
//	rooms    - List your rooms
//	post     - Post a message to a room
//	tail     - Print a room's live messages
//	plan     - Build a plan from a room's chat
package main

import (
	"fmt"
	"os"

	"github.com/pohaoc29/GroceryShopperAI/cmd/grochat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
