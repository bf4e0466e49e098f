package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/riffle-ai/riffle/internal/log"
)

// Manager fans sub-queries out across all registered sources and fuses
// the ranked results. One search task runs per (sub-query, source) pair;
// any task failure fails the whole retrieval.
type Manager struct {
	sources     []Searcher
	topK        int
	rrfConstant float64
	logger      log.Logger
}

// ManagerConfig holds Manager dependencies and tuning.
type ManagerConfig struct {
	Sources     []Searcher
	TopK        int
	RRFConstant float64
	Logger      log.Logger
}

func (c ManagerConfig) validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive, got %d", c.TopK)
	}
	if c.RRFConstant < 1 {
		return fmt.Errorf("rrf constant must be >= 1, got %g", c.RRFConstant)
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// NewManager creates a retrieval Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid manager config: %w", err)
	}
	return &Manager{
		sources:     cfg.Sources,
		topK:        cfg.TopK,
		rrfConstant: cfg.RRFConstant,
		logger:      cfg.Logger,
	}, nil
}

// Retrieve runs every sub-query against every source concurrently and
// returns the raw ranked documents plus their RRF fusion. The raw list
// is ordered by (sub-query, source) pair so output is deterministic for
// a given set of source responses.
func (m *Manager) Retrieve(ctx context.Context, subQueries []SubQuery) ([]Document, []Fused, error) {
	if len(subQueries) == 0 {
		return nil, nil, nil
	}

	// Pre-indexed result slots keep fusion input order independent of
	// goroutine completion order.
	slots := make([][]Document, len(subQueries)*len(m.sources))

	g, gctx := errgroup.WithContext(ctx)
	for qi, sq := range subQueries {
		for si, src := range m.sources {
			slot := qi*len(m.sources) + si
			g.Go(func() error {
				hits, err := src.Search(gctx, sq.Text, m.topK)
				if err != nil {
					return fmt.Errorf("search %s for %q: %w", src.Origin(), sq.Text, err)
				}
				docs := make([]Document, 0, len(hits))
				for rank, hit := range hits {
					docs = append(docs, Document{
						DocID:    hit.DocID,
						Content:  hit.Content,
						Rank:     rank + 1,
						Origin:   src.Origin(),
						SubQuery: sq.ID,
					})
				}
				slots[slot] = docs
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var docs []Document
	for _, slot := range slots {
		docs = append(docs, slot...)
	}

	fused := Fuse(docs, m.rrfConstant)
	m.logger.DebugContext(ctx, "retrieval complete",
		"sub_queries", len(subQueries),
		"sources", len(m.sources),
		"raw_documents", len(docs),
		"fused_documents", len(fused))
	return docs, fused, nil
}
