package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/petasbytes/figaro/internal/app"
	"github.com/petasbytes/figaro/internal/config"
	"github.com/petasbytes/figaro/internal/logging"
	"github.com/petasbytes/figaro/memory"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, level, cfg.LogFormat)

	if cfg.Model.APIKey == "" {
		fmt.Println("Missing ANTHROPIC_API_KEY; export it before running.")
		os.Exit(1)
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		fmt.Println("\nExiting...")
		cancel()
	}()

	agent, err := app.NewRunner(ctx, cfg, log, app.Deps{})
	if err != nil {
		log.Error("agent unavailable", "err", err)
		os.Exit(1)
	}

	persistPath := cfg.Agent.Transcript
	var history []memory.Message
	if persistPath != "" {
		history, err = memory.LoadConversation(persistPath)
		if err != nil {
			log.Warn("failed to load persisted conversation", "path", persistPath, "err", err)
		}
	}

	fmt.Println("Chat with Figaro (Ctrl-C to quit)")
	inputCh, scanErr := readLines(os.Stdin)

outer:
	for {
		fmt.Print("\u001b[94mYou\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		res, err := agent.Ask(ctx, history, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\u001b[93mFigaro\u001b[0m: %s\n", res.Answer)

		// Only the visible exchange is persisted; tool traffic stays with the turn.
		history = append(history, memory.User(line), memory.Assistant(res.Content))
		if persistPath != "" {
			if err := memory.SaveConversation(persistPath, history); err != nil {
				log.Warn("failed to save conversation", "path", persistPath, "err", err)
			}
		}
	}
	// The reader may still be blocked on stdin after Ctrl-C.
	select {
	case err := <-scanErr:
		if err != nil {
			log.Warn("stdin read error", "err", err)
		}
	default:
	}
}

// readLines streams lines from r. The scanner's error is delivered on the
// second channel before lines is closed; nothing else touches the scanner.
func readLines(r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errc <- scanner.Err()
		close(lines)
	}()
	return lines, errc
}
