// Command buildindex embeds prior worked examples into the JSONL index the
// agent retrieves from.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/petasbytes/figaro/internal/app"
	"github.com/petasbytes/figaro/internal/config"
	"github.com/petasbytes/figaro/internal/logging"
	"github.com/petasbytes/figaro/internal/retrieval"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	docs := flag.String("docs", "", "directory of .txt/.md examples or a .jsonl file")
	out := flag.String("out", "", "index path (defaults to retrieval.index_path)")
	flag.Parse()

	if *docs == "" {
		fmt.Fprintln(os.Stderr, "usage: buildindex -docs PATH [-out PATH] [-config PATH]")
		os.Exit(2)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	log := logging.New(os.Stderr, level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	texts, err := retrieval.LoadDocuments(*docs)
	if err != nil {
		log.Error("load documents", "path", *docs, "err", err)
		os.Exit(1)
	}
	embedder, err := app.NewEmbedder(ctx, cfg.Retrieval)
	if err != nil {
		log.Error("embedder", "err", err)
		os.Exit(1)
	}
	entries, err := retrieval.Build(ctx, embedder, texts)
	if err != nil {
		log.Error("embed documents", "err", err)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = cfg.Retrieval.IndexPath
	}
	if err := retrieval.SaveIndex(path, entries); err != nil {
		log.Error("save index", "path", path, "err", err)
		os.Exit(1)
	}
	log.Info("index written", "path", path, "entries", len(entries))
}
