package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riffle-ai/riffle/internal/app"
	"github.com/riffle-ai/riffle/internal/config"
	"github.com/riffle-ai/riffle/internal/log"
	"github.com/riffle-ai/riffle/internal/pipeline"
	"github.com/riffle-ai/riffle/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Please run:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	level := slog.LevelInfo
	if debugFlag || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})

	var observer pipeline.Observer
	if debugFlag || cfg.Debug {
		observer = debugObserver(os.Stderr)
	}

	return app.New(ctx, cfg, logger, app.Options{Observer: observer})
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	renderer := newMarkdownRenderer()

	fmt.Printf("Riffle ready (session %s). Type /help for commands.\n\n", a.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("Bye!")
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if handleCommand(line, a) {
				return nil
			}
			continue
		}

		state, err := a.Pipeline.Run(ctx, line, a.History)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(renderer.Render(state.Answer))
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handleCommand handles slash commands; returns true when chat should exit.
func handleCommand(line string, a *app.App) bool {
	switch line {
	case "/exit", "/quit":
		fmt.Println("Bye!")
		return true
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help     show this help")
		fmt.Println("  /session  show the current session ID")
		fmt.Println("  /reset    start a fresh session")
		fmt.Println("  /exit     leave the chat")
	case "/session":
		fmt.Printf("Current session: %s (%d turns in history)\n",
			a.SessionID, a.History.Len())
	case "/reset":
		if err := session.ClearCurrentID(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		fmt.Println("Session cleared. Restart riffle to begin a new one.")
		return true
	default:
		fmt.Printf("Unknown command %q. Type /help for commands.\n", line)
	}
	return false
}
