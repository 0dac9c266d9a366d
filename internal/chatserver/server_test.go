package chatserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/petasbytes/figaro/internal/chatserver"
	"github.com/petasbytes/figaro/internal/errorsx"
	"github.com/petasbytes/figaro/internal/logging"
	"github.com/petasbytes/figaro/internal/runner"
	"github.com/petasbytes/figaro/memory"
)

// echoAsker answers "echo: <utterance>" and records the history it saw.
type echoAsker struct {
	mu        sync.Mutex
	histories [][]memory.Message
	err       error
}

func (a *echoAsker) Ask(_ context.Context, history []memory.Message, utterance string) (runner.Result, error) {
	a.mu.Lock()
	a.histories = append(a.histories, append([]memory.Message(nil), history...))
	a.mu.Unlock()
	if a.err != nil {
		return runner.Result{TurnID: "turn-err"}, a.err
	}
	return runner.Result{Answer: "echo: " + utterance, TurnID: "turn-1"}, nil
}

func newServer(t *testing.T, a chatserver.Asker, builds *atomic.Int32) *httptest.Server {
	t.Helper()
	s := chatserver.New(func() (chatserver.Asker, error) {
		if builds != nil {
			builds.Add(1)
		}
		return a, nil
	}, chatserver.Options{
		AllowedOrigins: []string{"http://localhost:5173"},
		TurnTimeout:    time.Second,
		Logger:         logging.Discard(),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(url+"/chat", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, out
}

func TestChat_AnswersWithHistory(t *testing.T) {
	a := &echoAsker{}
	var builds atomic.Int32
	srv := newServer(t, a, &builds)

	req := chatserver.ChatRequest{
		Message: "and now?",
		ConversationHistory: []chatserver.HistoryMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "bot", Content: "odd"},
		},
	}
	for i := 0; i < 2; i++ {
		resp, out := postChat(t, srv.URL, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %v", resp.StatusCode, out)
		}
		if out["response"] != "echo: and now?" || out["conversation_id"] == "" {
			t.Fatalf("unexpected body: %v", out)
		}
	}
	if builds.Load() != 1 {
		t.Fatalf("agent should be built once, got %d", builds.Load())
	}
	a.mu.Lock()
	h := a.histories[0]
	a.mu.Unlock()
	if len(h) != 3 || h[0].Role != memory.RoleUser || h[1].Role != memory.RoleAssistant || h[2].Role != memory.RoleUser {
		t.Fatalf("unexpected history: %+v", h)
	}
}

func TestChat_Errors(t *testing.T) {
	a := &echoAsker{err: errorsx.Wrap(errors.New("upstream 500"), errorsx.ReasonInference)}
	srv := newServer(t, a, nil)

	resp, out := postChat(t, srv.URL, chatserver.ChatRequest{Message: "q"})
	if resp.StatusCode != http.StatusBadGateway || out["code"] != "inference" {
		t.Fatalf("unexpected: %d %v", resp.StatusCode, out)
	}
	if d, _ := out["detail"].(string); !strings.Contains(d, "upstream 500") {
		t.Fatalf("detail: %v", out["detail"])
	}

	resp, out = postChat(t, srv.URL, chatserver.ChatRequest{Message: "   "})
	if resp.StatusCode != http.StatusBadRequest || out["code"] != "bad_request" {
		t.Fatalf("empty message: %d %v", resp.StatusCode, out)
	}

	r, err := http.Get(srv.URL + "/chat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /chat: %d", r.StatusCode)
	}
}

func TestChat_AgentBuildFailureIsRetried(t *testing.T) {
	var builds atomic.Int32
	s := chatserver.New(func() (chatserver.Asker, error) {
		if builds.Add(1) == 1 {
			return nil, errors.New("index missing")
		}
		return &echoAsker{}, nil
	}, chatserver.Options{Logger: logging.Discard()})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, out := postChat(t, srv.URL, chatserver.ChatRequest{Message: "q"})
	if resp.StatusCode != http.StatusServiceUnavailable || out["code"] != "config" {
		t.Fatalf("unexpected: %d %v", resp.StatusCode, out)
	}

	for i := 0; i < 2; i++ {
		resp, out = postChat(t, srv.URL, chatserver.ChatRequest{Message: "q"})
		if resp.StatusCode != http.StatusOK || out["response"] != "echo: q" {
			t.Fatalf("after recovery: %d %v", resp.StatusCode, out)
		}
	}
	if builds.Load() != 2 {
		t.Fatalf("want one failed and one successful build, got %d", builds.Load())
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv := newServer(t, &echoAsker{}, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight: %d %v", resp.StatusCode, resp.Header)
	}

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("disallowed origin got CORS headers")
	}
}

func TestWS_KeepsHistoryPerConnection(t *testing.T) {
	a := &echoAsker{}
	srv := newServer(t, a, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var ids []string
	for _, msg := range []string{"one", "two"} {
		if err := conn.WriteJSON(chatserver.ChatRequest{Message: msg}); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp chatserver.ChatResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if resp.Response != "echo: "+msg {
			t.Fatalf("unexpected response: %+v", resp)
		}
		ids = append(ids, resp.ConversationID)
	}
	if ids[0] == "" || ids[0] != ids[1] {
		t.Fatalf("conversation id should be stable per connection: %v", ids)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	second := a.histories[1]
	if len(second) != 2 || second[0].Content != "one" || second[1].Content != "echo: one" {
		t.Fatalf("history not kept: %+v", second)
	}
}

func TestWS_RejectsForeignOrigin(t *testing.T) {
	srv := newServer(t, &echoAsker{}, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	h := http.Header{}
	h.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, h)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}
