package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query."`
}

const (
	wikiMaxDocs  = 2
	webMaxDocs   = 3
	arxivMaxDocs = 3
)

var errEmptyQuery = errors.New("query must not be empty")

func WikiSearch(env Env) ToolDefinition {
	return NewTool("wiki_search", "Search Wikipedia for a query and return at most 2 results.",
		func(ctx context.Context, in SearchInput) (string, error) {
			q := strings.TrimSpace(in.Query)
			if q == "" {
				return "", errEmptyQuery
			}
			docs, err := searchWikipedia(ctx, env, q)
			if err != nil {
				return "", fmt.Errorf("wiki_search: %w", err)
			}
			if len(docs) == 0 {
				return "No Wikipedia results found.", nil
			}
			return env.clamp(formatDocs(docs, wikiDocSeparator)), nil
		})
}

func searchWikipedia(ctx context.Context, env Env, q string) ([]document, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"generator":     {"search"},
		"gsrsearch":     {q},
		"gsrlimit":      {fmt.Sprint(wikiMaxDocs)},
		"prop":          {"extracts|info"},
		"inprop":        {"url"},
		"exintro":       {"1"},
		"explaintext":   {"1"},
	}
	body, err := env.get(ctx, env.endpoints().Wikipedia+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed response")
	}

	type ranked struct {
		index int64
		doc   document
	}
	var hits []ranked
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		hits = append(hits, ranked{
			index: page.Get("index").Int(),
			doc: document{
				Title:   page.Get("title").String(),
				URL:     page.Get("fullurl").String(),
				Content: page.Get("extract").String(),
			},
		})
		return true
	})
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	docs := make([]document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.doc)
	}
	return docs, nil
}

func WebSearch(env Env) ToolDefinition {
	return NewTool("web_search", "Search the web for a query and return at most 3 results.",
		func(ctx context.Context, in SearchInput) (string, error) {
			q := strings.TrimSpace(in.Query)
			if q == "" {
				return "", errEmptyQuery
			}
			if env.TavilyAPIKey == "" {
				return "", errors.New("web_search: no Tavily API key configured")
			}
			docs, err := searchTavily(ctx, env, q)
			if err != nil {
				return "", fmt.Errorf("web_search: %w", err)
			}
			if len(docs) == 0 {
				return "No web results found.", nil
			}
			return env.clamp(formatDocs(docs, docSeparator)), nil
		})
}

func searchTavily(ctx context.Context, env Env, q string) ([]document, error) {
	payload, err := json.Marshal(map[string]any{"query": q, "max_results": webMaxDocs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.endpoints().Tavily, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.TavilyAPIKey)

	body, err := env.fetch(req)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed response")
	}
	var docs []document
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		docs = append(docs, document{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Content: r.Get("content").String(),
		})
		return len(docs) < webMaxDocs
	})
	return docs, nil
}

func ArxivSearch(env Env) ToolDefinition {
	return NewTool("arxiv_search", "Search Arxiv for a query and return at most 3 results.",
		func(ctx context.Context, in SearchInput) (string, error) {
			q := strings.TrimSpace(in.Query)
			if q == "" {
				return "", errEmptyQuery
			}
			docs, err := searchArxiv(ctx, env, q)
			if err != nil {
				return "", fmt.Errorf("arxiv_search: %w", err)
			}
			if len(docs) == 0 {
				return "No Arxiv results found.", nil
			}
			return env.clamp(formatDocs(docs, docSeparator)), nil
		})
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string     `xml:"id"`
	Title   string     `xml:"title"`
	Summary string     `xml:"summary"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

func (e atomEntry) url() string {
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	return strings.TrimSpace(e.ID)
}

func searchArxiv(ctx context.Context, env Env, q string) ([]document, error) {
	params := url.Values{
		"search_query": {"all:" + q},
		"start":        {"0"},
		"max_results":  {fmt.Sprint(arxivMaxDocs)},
	}
	body, err := env.get(ctx, env.endpoints().Arxiv+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	docs := make([]document, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if len(docs) == arxivMaxDocs {
			break
		}
		docs = append(docs, document{
			Title:   collapseSpace(e.Title),
			URL:     e.url(),
			Content: collapseSpace(e.Summary),
		})
	}
	return docs, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
