package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/petasbytes/figaro/internal/fsops"
)

// Endpoints are the base URLs of the external services tools call.
type Endpoints struct {
	Wikipedia string
	Arxiv     string
	Tavily    string
	YouTube   string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Wikipedia: "https://en.wikipedia.org/w/api.php",
		Arxiv:     "http://export.arxiv.org/api/query",
		Tavily:    "https://api.tavily.com/search",
		YouTube:   "https://www.youtube.com",
	}
}

// Env carries the collaborators shared by tools that reach outside the process.
type Env struct {
	HTTP           *http.Client
	Files          *fsops.Sandbox
	Endpoints      Endpoints
	TavilyAPIKey   string
	PythonBin      string
	UserAgent      string
	MaxResultRunes int
}

const (
	defaultMaxResultRunes = 12_000
	maxResponseBytes      = 8 << 20
	truncationSentinel    = "\n-- truncated --\n"
)

func (e Env) httpClient() *http.Client {
	if e.HTTP != nil {
		return e.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (e Env) endpoints() Endpoints {
	d := DefaultEndpoints()
	if e.Endpoints.Wikipedia != "" {
		d.Wikipedia = e.Endpoints.Wikipedia
	}
	if e.Endpoints.Arxiv != "" {
		d.Arxiv = e.Endpoints.Arxiv
	}
	if e.Endpoints.Tavily != "" {
		d.Tavily = e.Endpoints.Tavily
	}
	if e.Endpoints.YouTube != "" {
		d.YouTube = e.Endpoints.YouTube
	}
	return d
}

// clamp keeps tool output within the configured rune cap.
func (e Env) clamp(s string) string {
	n := e.MaxResultRunes
	if n <= 0 {
		n = defaultMaxResultRunes
	}
	out, truncated := clampRunes(s, n)
	if truncated {
		out += truncationSentinel
	}
	return out
}

// clampRunes returns s cut to at most n runes and whether anything was cut.
func clampRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// fetch performs req and returns the body of a 2xx response.
func (e Env) fetch(req *http.Request) ([]byte, error) {
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}
	resp, err := e.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL.Host, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := clampRunes(strings.TrimSpace(string(body)), 200)
		return nil, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Host, resp.StatusCode, snippet)
	}
	return body, nil
}

func (e Env) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return e.fetch(req)
}

// Separators placed between formatted search hits.
const (
	wikiDocSeparator = "\n\n---\n\n"
	docSeparator     = "\n\n-----------\n\n"
)

// formatDocs renders search hits as title, url and content blocks joined by sep.
func formatDocs(docs []document, sep string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("%s\n%s\n%s\n-----------\n", d.Title, d.URL, strings.TrimSpace(d.Content))
	}
	return strings.Join(parts, sep)
}

type document struct {
	Title   string
	URL     string
	Content string
}
