// Package deconstruct breaks a conversational user query into focused,
// standalone sub-queries using the language model, resolving pronouns
// and references against recent conversation history.
package deconstruct

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/retrieval"
)

// Completer produces a model completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Deconstructor turns user queries into retrieval sub-queries.
type Deconstructor struct {
	completer     Completer
	historyWindow int
	logger        log.Logger
}

// Config holds Deconstructor dependencies.
type Config struct {
	Completer     Completer
	HistoryWindow int
	Logger        log.Logger
}

func (c Config) validate() error {
	if c.Completer == nil {
		return fmt.Errorf("completer is required")
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history window must be positive, got %d", c.HistoryWindow)
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// New creates a Deconstructor.
func New(cfg Config) (*Deconstructor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid deconstructor config: %w", err)
	}
	return &Deconstructor{
		completer:     cfg.Completer,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger,
	}, nil
}

const promptTemplate = `You break a user's question into standalone search queries.

Rewrite the question below as one or more self-contained queries:
- Resolve pronouns and references ("it", "that", "the one you mentioned") using the conversation.
- Split multi-part questions into one query per distinct concept.
- Keep a simple single-concept question as a single query, rephrased to stand alone.
- Output ONLY the queries, one per line. No numbering, no commentary.

%sQuestion: %s

Queries:`

// Deconstruct produces at least one sub-query for the turn. When the
// model returns nothing usable the original query is used verbatim, so
// the result set is never empty.
func (d *Deconstructor) Deconstruct(ctx context.Context, turn conversation.Turn, history []conversation.Turn) ([]retrieval.SubQuery, error) {
	prompt := fmt.Sprintf(promptTemplate, formatHistory(history, d.historyWindow), turn.Text)

	raw, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("deconstruct query: %w", err)
	}

	texts := parseQueries(raw)
	if len(texts) == 0 {
		d.logger.WarnContext(ctx, "model returned no sub-queries, using original query",
			"turn_id", turn.ID)
		texts = []string{turn.Text}
	}

	subQueries := make([]retrieval.SubQuery, 0, len(texts))
	for _, text := range texts {
		subQueries = append(subQueries, retrieval.SubQuery{
			ID:         uuid.New(),
			Text:       text,
			OriginTurn: turn.ID,
		})
	}

	d.logger.DebugContext(ctx, "query deconstructed",
		"turn_id", turn.ID,
		"sub_queries", len(subQueries))
	return subQueries, nil
}

// formatHistory renders the most recent turns as prompt context.
// Empty history renders to nothing so the template degrades cleanly.
func formatHistory(history []conversation.Turn, window int) string {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	b.WriteString("\n")
	return b.String()
}

// parseQueries splits a completion into clean sub-query strings.
// Accepts one query per line and tolerates list markers the model
// sometimes emits despite instructions.
func parseQueries(raw string) []string {
	var queries []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = trimListNumber(line)
		if line == "" {
			continue
		}
		queries = append(queries, line)
	}
	return queries
}

// trimListNumber strips a leading "1." / "2)" style marker.
func trimListNumber(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) {
		return s
	}
	if s[i] == '.' || s[i] == ')' {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
