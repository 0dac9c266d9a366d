package retrieval

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Build embeds each text in order.
func Build(ctx context.Context, e Embedder, texts []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed document %d: %w", i, err)
		}
		entries = append(entries, Entry{Text: t, Embedding: vec})
	}
	return entries, nil
}

// LoadDocuments collects example texts from path. A directory contributes one
// document per .txt or .md file, in name order. A .jsonl file contributes one
// document per line, taken from "text" or from "Question" and "Final answer".
func LoadDocuments(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return loadDir(path)
	}
	return loadJSONL(path)
}

func loadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".txt" || ext == ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []string
	for _, n := range names {
		b, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			docs = append(docs, s)
		}
	}
	return docs, nil
}

func loadJSONL(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		if !gjson.Valid(raw) {
			return nil, fmt.Errorf("%s line %d: invalid JSON", filepath.Base(path), line)
		}
		if doc := documentText(raw); doc != "" {
			docs = append(docs, doc)
		}
	}
	return docs, sc.Err()
}

func documentText(raw string) string {
	if t := gjson.Get(raw, "text"); t.Exists() {
		return strings.TrimSpace(t.String())
	}
	q := strings.TrimSpace(gjson.Get(raw, "Question").String())
	a := strings.TrimSpace(gjson.Get(raw, "Final answer").String())
	switch {
	case q == "":
		return ""
	case a == "":
		return "Question : " + q
	default:
		return "Question : " + q + "\n\nFinal answer : " + a
	}
}
