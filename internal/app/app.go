// Package app wires configuration into a ready-to-use agent.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/figaro/internal/config"
	"github.com/petasbytes/figaro/internal/errorsx"
	"github.com/petasbytes/figaro/internal/fsops"
	"github.com/petasbytes/figaro/internal/logging"
	"github.com/petasbytes/figaro/internal/provider"
	"github.com/petasbytes/figaro/internal/resilience"
	"github.com/petasbytes/figaro/internal/retrieval"
	"github.com/petasbytes/figaro/internal/runner"
	"github.com/petasbytes/figaro/internal/telemetry"
	"github.com/petasbytes/figaro/tools"
)

// Deps overrides collaborators, mainly for tests.
type Deps struct {
	// HTTPClient is used for inference calls when set.
	HTTPClient *http.Client
	// ToolHTTP is used by tools that call external services when set.
	ToolHTTP *http.Client
}

// NewEmbedder returns the embedder selected by cfg.
func NewEmbedder(ctx context.Context, cfg config.RetrievalConfig) (retrieval.Embedder, error) {
	switch cfg.Embedder {
	case config.EmbedderHash:
		return retrieval.HashEmbedder{Dim: cfg.Dimensions}, nil
	case config.EmbedderGemini:
		return retrieval.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}
}

// NewRunner builds the agent. An enabled retriever whose index cannot be
// loaded is an error.
func NewRunner(ctx context.Context, cfg config.Config, log *slog.Logger, deps Deps) (*runner.Runner, error) {
	events := telemetry.NewEmitter(cfg.Telemetry.Observe, cfg.Telemetry.EventsPath)

	files, err := fsops.New(cfg.Tools.FilesRoot)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}
	registry, err := tools.Default(tools.Env{
		HTTP:           deps.ToolHTTP,
		Files:          files,
		TavilyAPIKey:   cfg.Tools.TavilyAPIKey,
		PythonBin:      cfg.Tools.PythonBin,
		UserAgent:      cfg.Tools.UserAgent,
		MaxResultRunes: cfg.Tools.MaxResultRunes,
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}

	var retriever runner.Augmenter
	if cfg.Retrieval.Enabled {
		index, err := retrieval.LoadIndex(cfg.Retrieval.IndexPath)
		if err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonRetrieval)
		}
		embedder, err := NewEmbedder(ctx, cfg.Retrieval)
		if err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
		}
		retriever = retrieval.NewRetriever(index, embedder, logging.Component(log, "retrieval"))
		log.Info("retrieval index loaded", "path", cfg.Retrieval.IndexPath, "entries", index.Len(), "dim", index.Dim())
	} else {
		log.Warn("retrieval disabled by configuration")
	}

	client := provider.NewAnthropicClient(provider.AnthropicOptions{
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		HTTPClient: deps.HTTPClient,
	})
	reasoner := runner.NewAnthropicReasoner(client, registry.List(), runner.AnthropicOptions{
		Model:       anthropic.Model(cfg.Model.Name),
		MaxTokens:   int64(cfg.Model.MaxTokens),
		Temperature: cfg.Model.Temperature,
		Timeout:     cfg.Model.Timeout(),
		Retry:       resilience.NewRetryPolicy(cfg.Model.Retries, cfg.Model.RetryBackoff()),
		TokenBudget: cfg.Model.TokenBudget,
		Events:      events,
		Logger:      logging.Component(log, "reasoner"),
	})
	executor := runner.NewExecutor(registry, runner.ExecutorOptions{
		Timeout:     cfg.Tools.Timeout(),
		Concurrency: cfg.Tools.Concurrency,
		Events:      events,
		Logger:      logging.Component(log, "tools"),
	})

	prompt := cfg.Agent.SystemPrompt
	if prompt == "" {
		prompt = runner.DefaultSystemPrompt
	}
	return runner.New(reasoner, executor, runner.Options{
		SystemPrompt: prompt,
		MaxSteps:     cfg.Agent.MaxSteps,
		Retriever:    retriever,
		Events:       events,
		Logger:       logging.Component(log, "runner"),
	}), nil
}
