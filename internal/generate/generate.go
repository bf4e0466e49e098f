// Package generate produces the final answer from the user's query,
// recent conversation history, and the fused retrieval context.
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/riffle-ai/riffle/internal/conversation"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/retrieval"
)

// MaxContextDocuments caps how many fused documents enter the prompt.
const MaxContextDocuments = 5

// Completer produces a model completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator assembles answer prompts and invokes the model.
type Generator struct {
	completer     Completer
	historyWindow int
	logger        log.Logger
}

// Config holds Generator dependencies.
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

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	return &Generator{
		completer:     cfg.Completer,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger,
	}, nil
}

// Generate produces the assistant's answer. The prompt carries the top
// fused documents as grounding context, each attributed to its source
// and document ID; when retrieval found nothing,
// the model is told so explicitly instead of being handed an empty
// context block.
func (g *Generator) Generate(ctx context.Context, query string, history []conversation.Turn, docs []retrieval.Fused) (string, error) {
	prompt := g.buildPrompt(query, history, docs)

	answer, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("generate answer: model returned empty completion")
	}

	g.logger.DebugContext(ctx, "answer generated",
		"context_documents", min(len(docs), MaxContextDocuments),
		"answer_length", len(answer))
	return answer, nil
}

func (g *Generator) buildPrompt(query string, history []conversation.Turn, docs []retrieval.Fused) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant. Answer the user's question using the retrieved context below. Ground your answer in the context; if it does not cover the question, say what you do not know rather than inventing details.\n\n")

	if len(history) > g.historyWindow {
		history = history[len(history)-g.historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
		b.WriteString("\n")
	}

	if len(docs) == 0 {
		b.WriteString("No relevant context was retrieved for this question. Answer from the conversation alone and be explicit about uncertainty.\n\n")
	} else {
		if len(docs) > MaxContextDocuments {
			docs = docs[:MaxContextDocuments]
		}
		b.WriteString("Retrieved context:\n")
		for i, d := range docs {
			fmt.Fprintf(&b, "[%d] (%s %s) %s\n", i+1, d.Origin, d.DocID, d.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", query)
	return b.String()
}
