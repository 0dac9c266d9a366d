package retrieval

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"google.golang.org/genai"
)

// Embedder maps text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is a deterministic, offline embedder based on feature hashing of
// lowercased word unigrams and bigrams.
type HashEmbedder struct {
	Dim int
}

func (h HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if h.Dim <= 0 {
		return nil, fmt.Errorf("hash embedder: dimension must be > 0, got %d", h.Dim)
	}
	vec := make([]float32, h.Dim)
	words := tokenize(text)
	for i, w := range words {
		h.add(vec, w)
		if i > 0 {
			h.add(vec, words[i-1]+" "+w)
		}
	}
	normalize(vec)
	return vec, nil
}

func (h HashEmbedder) add(vec []float32, feature string) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.Dim))
	if sum>>63 == 1 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(v []float32) {
	var n float64
	for _, x := range v {
		n += float64(x) * float64(x)
	}
	if n == 0 {
		return
	}
	n = math.Sqrt(n)
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
}

// GeminiEmbedder embeds text with the Gemini embeddings API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGeminiEmbedder builds a client for the Gemini API backend. dims of 0 keeps
// the model's default output size.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini embedder: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model, dims: dims}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dims > 0 {
		d := int32(g.dims)
		cfg.OutputDimensionality = &d
	}
	res, err := g.client.Models.EmbedContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini embed: empty embedding")
	}
	return res.Embeddings[0].Values, nil
}
