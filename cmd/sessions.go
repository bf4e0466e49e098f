package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riffle-ai/riffle/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := session.LoadCurrentID()
		if err != nil {
			return err
		}
		if id == nil {
			fmt.Println("No active session. One starts with the next chat.")
			return nil
		}
		fmt.Printf("Current session: %s\n", id)
		return nil
	},
}

var sessionsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a fresh session, optionally purging stored memory",
	RunE:  runSessionsReset,
}

var purgeMemory bool

func init() {
	sessionsResetCmd.Flags().BoolVar(&purgeMemory, "purge", false,
		"also delete the session's stored conversation memory")
	sessionsCmd.AddCommand(sessionsShowCmd, sessionsResetCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsReset(cmd *cobra.Command, args []string) error {
	id, err := session.LoadCurrentID()
	if err != nil {
		return err
	}
	if id == nil {
		fmt.Println("No active session to reset.")
		return nil
	}

	if purgeMemory {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.MemoryStore.Clear(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d remembered turns from session %s\n", deleted, id)
	}

	if err := session.ClearCurrentID(); err != nil {
		return err
	}
	fmt.Println("Session reset. A new one starts with the next chat.")
	return nil
}
