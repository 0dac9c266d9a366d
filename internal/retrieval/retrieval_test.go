package retrieval_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/petasbytes/figaro/internal/logging"
	"github.com/petasbytes/figaro/internal/retrieval"
	"github.com/petasbytes/figaro/memory"
)

// fixedEmbedder returns a canned vector per text and counts calls.
type fixedEmbedder struct {
	vecs  map[string][]float32
	err   error
	calls int
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vecs[text], nil
}

func TestNewIndex_Validation(t *testing.T) {
	if _, err := retrieval.NewIndex(nil); !errors.Is(err, retrieval.ErrEmptyIndex) {
		t.Fatalf("want ErrEmptyIndex, got %v", err)
	}
	_, err := retrieval.NewIndex([]retrieval.Entry{
		{Text: "a", Embedding: []float32{1, 0}},
		{Text: "b", Embedding: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNearest_TieBreaksToLowestPosition(t *testing.T) {
	idx, err := retrieval.NewIndex([]retrieval.Entry{
		{Text: "far", Embedding: []float32{0, 1}},
		{Text: "first", Embedding: []float32{2, 0}},
		{Text: "second", Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	i, score, err := idx.Nearest([]float32{3, 0})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if i != 1 || score < 0.999 {
		t.Fatalf("want position 1 with score 1, got %d %v", i, score)
	}
	if _, _, err := idx.Nearest([]float32{1}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestSaveLoadIndex_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "index.jsonl")
	in := []retrieval.Entry{
		{Text: "Question : 2+2\n\nFinal answer : 4", Embedding: []float32{0.5, -0.25}},
		{Text: "b", Embedding: []float32{1, 0}},
	}
	if err := retrieval.SaveIndex(p, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	idx, err := retrieval.LoadIndex(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if idx.Len() != 2 || idx.Dim() != 2 {
		t.Fatalf("unexpected shape: len=%d dim=%d", idx.Len(), idx.Dim())
	}
	if !reflect.DeepEqual(idx.Entry(0), in[0]) {
		t.Fatalf("entry mismatch: %+v", idx.Entry(0))
	}
}

func TestLoadIndex_Unavailable(t *testing.T) {
	dir := t.TempDir()
	if _, err := retrieval.LoadIndex(filepath.Join(dir, "missing.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want not-exist error, got %v", err)
	}

	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, []byte("\n\n"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := retrieval.LoadIndex(empty); !errors.Is(err, retrieval.ErrEmptyIndex) {
		t.Fatalf("want ErrEmptyIndex, got %v", err)
	}

	bad := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(bad, []byte(`{"text":"a","embedding":[1]}`+"\n{oops\n"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := retrieval.LoadIndex(bad); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("want line-numbered parse error, got %v", err)
	}
}

func TestHashEmbedder_DeterministicAndTopical(t *testing.T) {
	e := retrieval.HashEmbedder{Dim: 256}
	ctx := context.Background()
	docs := []string{
		"How many studio albums did Mercedes Sosa publish between 2000 and 2009?",
		"What is the capital city of France?",
	}
	entries, err := retrieval.Build(ctx, e, docs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx, err := retrieval.NewIndex(entries)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	q1, _ := e.Embed(ctx, "capital city of France")
	q2, _ := e.Embed(ctx, "capital city of France")
	if !reflect.DeepEqual(q1, q2) {
		t.Fatal("hash embedder is not deterministic")
	}
	if i, _, _ := idx.Nearest(q1); i != 1 {
		t.Fatalf("want France example, got position %d", i)
	}

	if _, err := (retrieval.HashEmbedder{}).Embed(ctx, "x"); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestAugment_UsesFirstUserMessage(t *testing.T) {
	emb := &fixedEmbedder{vecs: map[string][]float32{
		"first question": {1, 0},
		"follow up":      {0, 1},
	}}
	idx, _ := retrieval.NewIndex([]retrieval.Entry{
		{Text: "example A", Embedding: []float32{1, 0}},
		{Text: "example B", Embedding: []float32{0, 1}},
	})
	r := retrieval.NewRetriever(idx, emb, logging.Discard())

	msgs := []memory.Message{memory.System("sys"), memory.User("first question"), memory.Assistant("ok"), memory.User("follow up")}
	before := append([]memory.Message(nil), msgs...)

	got, err := r.Augment(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if got.Role != memory.RoleUser || got.Content != retrieval.ExamplePrefix+"example A" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if !reflect.DeepEqual(msgs, before) {
		t.Fatal("Augment modified its input")
	}

	again, err := r.Augment(context.Background(), msgs)
	if err != nil || !reflect.DeepEqual(again, got) {
		t.Fatalf("Augment not deterministic: %+v vs %+v (err %v)", again, got, err)
	}
}

func TestAugment_Failures(t *testing.T) {
	idx, _ := retrieval.NewIndex([]retrieval.Entry{{Text: "a", Embedding: []float32{1}}})

	r := retrieval.NewRetriever(idx, &fixedEmbedder{}, logging.Discard())
	if _, err := r.Augment(context.Background(), []memory.Message{memory.System("s")}); !errors.Is(err, retrieval.ErrNoQuestion) {
		t.Fatalf("want ErrNoQuestion, got %v", err)
	}

	boom := errors.New("quota exceeded")
	r = retrieval.NewRetriever(idx, &fixedEmbedder{err: boom}, logging.Discard())
	if _, err := r.Augment(context.Background(), []memory.Message{memory.User("q")}); !errors.Is(err, boom) {
		t.Fatalf("want embedder error, got %v", err)
	}
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.md":     "second",
		"a.txt":    "  first \n",
		"skip.png": "binary",
		"empty.md": "   ",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}
	docs, err := retrieval.LoadDocuments(dir)
	if err != nil {
		t.Fatalf("LoadDocuments(dir): %v", err)
	}
	if !reflect.DeepEqual(docs, []string{"first", "second"}) {
		t.Fatalf("dir docs: %q", docs)
	}

	jl := filepath.Join(dir, "meta.jsonl")
	content := `{"text":"plain"}` + "\n" + `{"Question":"2+2?","Final answer":"4"}` + "\n\n" + `{"other":1}` + "\n"
	if err := os.WriteFile(jl, []byte(content), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	docs, err = retrieval.LoadDocuments(jl)
	if err != nil {
		t.Fatalf("LoadDocuments(jsonl): %v", err)
	}
	want := []string{"plain", "Question : 2+2?\n\nFinal answer : 4"}
	if !reflect.DeepEqual(docs, want) {
		t.Fatalf("jsonl docs: %q", docs)
	}
}
