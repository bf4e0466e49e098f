package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Load documents into the knowledge base",
	Long: `Index walks a directory tree and loads every .txt and .md file
into the knowledge base. Files are chunked, embedded and stored;
unchanged files re-index as no-ops.

Without an argument, the configured kb_path directory is indexed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	root := a.Config.KBPath
	if len(args) == 1 {
		root = args[0]
	}

	stats, err := a.Indexer.IndexDir(ctx, root)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d files (%d chunks, %d skipped) from %s\n",
		stats.FilesIndexed, stats.ChunksWritten, stats.FilesSkipped, root)

	total, err := a.KnowledgeStore.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Knowledge base now holds %d chunks\n", total)
	return nil
}
