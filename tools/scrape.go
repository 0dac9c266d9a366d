package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type URLInput struct {
	URL string `json:"url" jsonschema_description:"The URL to scrape."`
}

func ScrapeWebsite(env Env) ToolDefinition {
	return NewTool("scrape_website", "A tool to scrape a website and return the text.",
		func(ctx context.Context, in URLInput) (string, error) {
			u, err := parseHTTPURL(in.URL)
			if err != nil {
				return "", err
			}
			body, err := env.get(ctx, u.String())
			if err != nil {
				return "", fmt.Errorf("scrape_website: %w", err)
			}
			text, err := visibleText(body)
			if err != nil {
				return "", fmt.Errorf("scrape_website: %w", err)
			}
			return env.clamp(text), nil
		})
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: want an absolute http(s) URL", raw)
	}
	return u, nil
}

// visibleText returns the page's text nodes one per line, skipping non-rendered elements.
func visibleText(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", err
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return
			}
		}
		if n.Type == html.TextNode {
			if s := collapseSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}

func ScrapeYouTube(env Env) ToolDefinition {
	return NewTool("scrape_youtube", "A tool to scrape a youtube video and return the transcript text.",
		func(ctx context.Context, in URLInput) (string, error) {
			id, err := youTubeVideoID(in.URL)
			if err != nil {
				return "", err
			}
			text, err := fetchTranscript(ctx, env, id)
			if err != nil {
				return "", fmt.Errorf("scrape_youtube: %w", err)
			}
			return env.clamp(text), nil
		})
}

func youTubeVideoID(raw string) (string, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return "", err
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			id = rest
		} else if rest, ok := strings.CutPrefix(u.Path, "/embed/"); ok {
			id = rest
		}
	}
	id = strings.Trim(id, "/")
	if id == "" || strings.ContainsAny(id, "/?&") {
		return "", fmt.Errorf("not a YouTube video URL: %q", raw)
	}
	return id, nil
}

var errNoCaptions = errors.New("video has no captions")

func fetchTranscript(ctx context.Context, env Env, videoID string) (string, error) {
	page, err := env.get(ctx, env.endpoints().YouTube+"/watch?v="+url.QueryEscape(videoID))
	if err != nil {
		return "", err
	}
	player, err := playerResponse(page)
	if err != nil {
		return "", err
	}

	tracks := gjson.GetBytes(player, "captions.playerCaptionsTracklistRenderer.captionTracks").Array()
	if len(tracks) == 0 {
		return "", errNoCaptions
	}
	track := tracks[0]
	for _, t := range tracks {
		if strings.HasPrefix(t.Get("languageCode").String(), "en") {
			track = t
			break
		}
	}
	baseURL := track.Get("baseUrl").String()
	if baseURL == "" {
		return "", errNoCaptions
	}

	captions, err := env.get(ctx, baseURL)
	if err != nil {
		return "", fmt.Errorf("captions: %w", err)
	}
	return transcriptText(captions)
}

const playerMarker = "ytInitialPlayerResponse"

// playerResponse extracts the JSON object assigned to ytInitialPlayerResponse.
func playerResponse(page []byte) (json.RawMessage, error) {
	i := bytes.Index(page, []byte(playerMarker))
	if i < 0 {
		return nil, errors.New("player response not found")
	}
	rest := page[i+len(playerMarker):]
	j := bytes.IndexByte(rest, '{')
	if j < 0 {
		return nil, errors.New("player response not found")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(rest[j:])).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return raw, nil
}

type timedText struct {
	Lines []string `xml:"text"`
}

func transcriptText(captions []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(captions, &tt); err != nil {
		return "", fmt.Errorf("decode captions: %w", err)
	}
	parts := make([]string, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		if s := collapseSpace(html.UnescapeString(l)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", errNoCaptions
	}
	return strings.Join(parts, " "), nil
}
