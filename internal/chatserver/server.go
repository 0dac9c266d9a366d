// Package chatserver exposes the agent to the chat front end over HTTP and WebSocket.
package chatserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/petasbytes/figaro/internal/errorsx"
	"github.com/petasbytes/figaro/internal/runner"
	"github.com/petasbytes/figaro/memory"
)

// Asker answers one utterance given prior history.
type Asker interface {
	Ask(ctx context.Context, history []memory.Message, utterance string) (runner.Result, error)
}

// HistoryMessage is one prior turn as the front end stores it.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
}

type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type Options struct {
	// AllowedOrigins lists browser origins accepted for CORS and WebSocket
	// upgrades; "*" allows any.
	AllowedOrigins []string
	// TurnTimeout bounds one answered message; zero disables it.
	TurnTimeout time.Duration
	Logger      *slog.Logger
}

const maxRequestBytes = 1 << 20

// Server builds its Asker on first use and shares it across requests. A
// failed build is retried on the next request.
type Server struct {
	build    func() (Asker, error)
	mu       sync.Mutex
	built    Asker
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(build func() (Asker, error), opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		build: build,
		opts:  opts,
		log:   log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) asker() (Asker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built != nil {
		return s.built, nil
	}
	a, err := s.build()
	if err != nil {
		return nil, err
	}
	s.built = a
	return a, nil
}

// Handler routes /chat, /health and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/ws", s.handleWS)
	return s.cors(mux)
}

func (s *Server) originAllowed(origin string) bool {
	return slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin)
}

// checkOrigin accepts non-browser clients, which send no Origin header.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "method not allowed", Code: "bad_request"})
		return
	}
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body: " + err.Error(), Code: "bad_request"})
		return
	}

	history := s.toHistory(req.ConversationHistory)
	res, status, errResp := s.answer(r.Context(), history, req.Message)
	if errResp != nil {
		writeJSON(w, status, errResp)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: res.Answer, ConversationID: uuid.NewString()})
}

// answer runs one turn and maps failures to an HTTP status and error body.
func (s *Server) answer(ctx context.Context, history []memory.Message, message string) (runner.Result, int, *ErrorResponse) {
	message = strings.TrimSpace(message)
	if message == "" {
		return runner.Result{}, http.StatusBadRequest, &ErrorResponse{Detail: "message is required", Code: "bad_request"}
	}
	asker, err := s.asker()
	if err != nil {
		s.log.Error("agent unavailable", slog.Any("err", err))
		return runner.Result{}, http.StatusServiceUnavailable, &ErrorResponse{Detail: "agent unavailable: " + err.Error(), Code: string(errorsx.ReasonConfig)}
	}
	if s.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TurnTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := asker.Ask(ctx, history, message)
	if err != nil {
		reason := errorsx.Reason(err)
		s.log.Warn("turn failed", "turn_id", res.TurnID, "reason", reason, slog.Any("err", err))
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		case reason == errorsx.ReasonInference:
			status = http.StatusBadGateway
		}
		return res, status, &ErrorResponse{Detail: "Error processing message: " + err.Error(), Code: string(reason)}
	}
	s.log.Info("turn answered", "turn_id", res.TurnID, "steps", res.Steps, "duration", time.Since(start))
	return res, http.StatusOK, nil
}

// toHistory maps front end turns to messages; unknown roles are kept as user text.
func (s *Server) toHistory(in []HistoryMessage) []memory.Message {
	out := make([]memory.Message, 0, len(in))
	for _, h := range in {
		switch h.Role {
		case "user":
			out = append(out, memory.User(h.Content))
		case "assistant":
			out = append(out, memory.Assistant(h.Content))
		default:
			s.log.Warn("unknown role in history", "role", h.Role)
			out = append(out, memory.User(h.Content))
		}
	}
	return out
}

// handleWS serves one conversation per connection. History accumulates on the
// server; a client may seed it with conversation_history on its first message.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conversationID := uuid.NewString()
	log := s.log.With("conversation_id", conversationID)
	log.Info("ws connected", "remote", r.RemoteAddr)

	var history []memory.Message
	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("ws read failed", slog.Any("err", err))
			}
			return
		}
		if len(history) == 0 && len(req.ConversationHistory) > 0 {
			history = s.toHistory(req.ConversationHistory)
		}

		res, _, errResp := s.answer(r.Context(), history, req.Message)
		var out any = errResp
		if errResp == nil {
			history = append(history, memory.User(strings.TrimSpace(req.Message)), memory.Assistant(res.Answer))
			out = ChatResponse{Response: res.Answer, ConversationID: conversationID}
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Warn("ws write failed", slog.Any("err", err))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
