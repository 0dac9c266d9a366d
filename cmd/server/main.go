package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/petasbytes/figaro/internal/app"
	"github.com/petasbytes/figaro/internal/chatserver"
	"github.com/petasbytes/figaro/internal/config"
	"github.com/petasbytes/figaro/internal/logging"
)

const version = "dev"

func printBanner(addr string) {
	tpl := "{{ .Title \"FIGARO\" \"\" 0 }}\nVersion: " + version + "\nListening on " + addr + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The agent is built on the first chat request and rebuilt after a
	// failure, so a missing key or index is reported per request and can be
	// fixed without a restart.
	srv := chatserver.New(func() (chatserver.Asker, error) {
		return app.NewRunner(ctx, cfg, log, app.Deps{})
	}, chatserver.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TurnTimeout:    cfg.Server.TurnTimeout(),
		Logger:         logging.Component(log, "chatserver"),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           srv.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	printBanner(cfg.Server.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server_error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
