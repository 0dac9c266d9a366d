package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petasbytes/figaro/memory"
)

// ExamplePrefix introduces the retrieved example to the model.
const ExamplePrefix = "here is a similar prior example: "

// ErrNoQuestion is returned when history has no user message to embed.
var ErrNoQuestion = errors.New("no user message to retrieve for")

// Retriever pairs an index with the embedder that built it.
type Retriever struct {
	index    *Index
	embedder Embedder
	log      *slog.Logger
}

func NewRetriever(index *Index, embedder Embedder, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{index: index, embedder: embedder, log: log}
}

// Augment embeds the first user message in msgs and returns the nearest example
// as a user message. It does not modify msgs.
func (r *Retriever) Augment(ctx context.Context, msgs []memory.Message) (memory.Message, error) {
	var question string
	found := false
	for _, m := range msgs {
		if m.Role == memory.RoleUser {
			question, found = m.Content, true
			break
		}
	}
	if !found {
		return memory.Message{}, ErrNoQuestion
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return memory.Message{}, fmt.Errorf("embed question: %w", err)
	}
	i, score, err := r.index.Nearest(vec)
	if err != nil {
		return memory.Message{}, err
	}
	r.log.Debug("retrieved example", "position", i, "score", score)
	return memory.User(ExamplePrefix + r.index.Entry(i).Text), nil
}
