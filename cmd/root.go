// Package cmd implements the riffle command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "riffle",
	Short: "Riffle - conversational retrieval over your documents",
	Long: `Riffle answers questions over a local knowledge base and remembers
the conversation. Each question is broken into focused sub-queries,
matched against both the knowledge base and earlier turns, and the
merged context grounds the answer.

Running riffle without a subcommand starts an interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"print pipeline state after each stage")
}
