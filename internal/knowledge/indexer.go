package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/riffle-ai/riffle/internal/log"
)

// indexableExtensions lists the file types the indexer ingests.
var indexableExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// IndexStats summarizes an indexing run.
type IndexStats struct {
	FilesScanned  int
	FilesIndexed  int
	FilesSkipped  int
	ChunksWritten int
}

// Indexer walks a directory tree and loads documents into the Store.
type Indexer struct {
	store   *Store
	chunker *Chunker
	logger  log.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(store *Store, chunker *Chunker, logger log.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Indexer{store: store, chunker: chunker, logger: logger}, nil
}

// IndexDir ingests every .txt and .md file under root. Chunk IDs derive
// from content, so unchanged files re-index as no-ops and edited files
// add their new chunks.
func (i *Indexer) IndexDir(ctx context.Context, root string) (IndexStats, error) {
	var stats IndexStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !indexableExtensions[strings.ToLower(filepath.Ext(path))] {
			stats.FilesSkipped++
			return nil
		}
		stats.FilesScanned++

		written, err := i.indexFile(ctx, root, path)
		if err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
		stats.FilesIndexed++
		stats.ChunksWritten += written
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}

	i.logger.InfoContext(ctx, "indexing complete",
		"root", root,
		"files_indexed", stats.FilesIndexed,
		"files_skipped", stats.FilesSkipped,
		"chunks_written", stats.ChunksWritten)
	return stats, nil
}

func (i *Indexer) indexFile(ctx context.Context, root, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	source, err := filepath.Rel(root, path)
	if err != nil {
		source = path
	}

	chunks := i.chunker.Split(string(data))
	for _, content := range chunks {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		chunk := Chunk{
			ID:      ChunkID(source, content),
			Content: content,
			Source:  source,
		}
		if err := i.store.Add(ctx, chunk); err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

// ChunkID derives a stable chunk identifier from source path and content.
func ChunkID(source, content string) string {
	h := sha256.Sum256([]byte(source + "\x00" + content))
	return hex.EncodeToString(h[:16])
}
