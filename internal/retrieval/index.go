// Package retrieval finds the prior worked example closest to a question.
package retrieval

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyIndex is returned when an index holds no entries.
var ErrEmptyIndex = errors.New("retrieval index is empty")

// Entry is one indexed example and its embedding.
type Entry struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Index is an in-memory, read-only set of entries sharing one dimension.
// It is safe for concurrent reads.
type Index struct {
	entries []Entry
	dim     int
}

// NewIndex validates entries and copies them into an Index.
func NewIndex(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(entries[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("entry 0: empty embedding")
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("entry %d: dimension %d, want %d", i, len(e.Embedding), dim)
		}
		out[i] = Entry{Text: e.Text, Embedding: append([]float32(nil), e.Embedding...)}
	}
	return &Index{entries: out, dim: dim}, nil
}

// LoadIndex reads a JSON Lines index file. Blank lines are ignored.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("index %s line %d: %w", filepath.Base(path), line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx, err := NewIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", filepath.Base(path), err)
	}
	return idx, nil
}

// SaveIndex writes entries as JSON Lines, replacing path atomically.
func SaveIndex(path string, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyIndex
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (x *Index) Len() int { return len(x.entries) }
func (x *Index) Dim() int { return x.dim }

// Entry returns the i-th entry.
func (x *Index) Entry(i int) Entry { return x.entries[i] }

// Nearest returns the position and cosine similarity of the entry closest to
// query. Ties resolve to the lowest position.
func (x *Index) Nearest(query []float32) (int, float64, error) {
	if len(query) != x.dim {
		return -1, 0, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), x.dim)
	}
	best, bestScore := -1, math.Inf(-1)
	for i, e := range x.entries {
		if s := cosine(query, e.Embedding); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore, nil
}

// cosine is 0 when either vector has zero magnitude.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
