package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/figaro/internal/errorsx"
	"github.com/petasbytes/figaro/internal/resilience"
	"github.com/petasbytes/figaro/internal/telemetry"
	"github.com/petasbytes/figaro/internal/windowing"
	"github.com/petasbytes/figaro/memory"
	"github.com/petasbytes/figaro/tools"
)

// Reasoner produces the next assistant message for a conversation.
type Reasoner interface {
	Infer(ctx context.Context, msgs []memory.Message) (memory.Message, error)
}

// ErrWindowOverBudget is returned when the newest tool exchange alone exceeds
// the token budget; nothing is sent in that case.
var ErrWindowOverBudget = errors.New("windowing: newest group exceeds token budget")

type AnthropicOptions struct {
	Model       anthropic.Model
	MaxTokens   int64
	Temperature float64
	// Timeout bounds each attempt; zero disables it.
	Timeout time.Duration
	Retry   resilience.RetryPolicy
	// TokenBudget caps estimated history tokens per call; zero sends everything.
	TokenBudget int
	Events      *telemetry.Emitter
	Logger      *slog.Logger
}

// AnthropicReasoner calls the Anthropic Messages API with the registry's tools.
type AnthropicReasoner struct {
	client  *anthropic.Client
	tools   []anthropic.ToolUnionParam
	opts    AnthropicOptions
	counter windowing.TokenCounter
	log     *slog.Logger
}

func NewAnthropicReasoner(client *anthropic.Client, defs []tools.ToolDefinition, opts AnthropicOptions) *AnthropicReasoner {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AnthropicReasoner{
		client:  client,
		tools:   anthropicTools(defs),
		opts:    opts,
		counter: windowing.HeuristicCounter{},
		log:     log,
	}
}

func anthropicTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, t := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

func (r *AnthropicReasoner) Infer(ctx context.Context, msgs []memory.Message) (memory.Message, error) {
	system, history := splitSystem(msgs)

	window, stats := windowing.PrepareSendWindow(history, r.opts.TokenBudget, r.counter)
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	r.opts.Events.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              string(r.opts.Model),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	r.log.Debug("window prepared",
		"budget", stats.Budget, "est_total", stats.Total,
		"groups_in", stats.IncludedGroups, "groups_skip", stats.SkippedGroups)
	if stats.OverBudgetNewest {
		return memory.Message{}, errorsx.Wrap(ErrWindowOverBudget, errorsx.ReasonInference)
	}

	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		MaxTokens:   r.opts.MaxTokens,
		Messages:    toParams(window),
		Tools:       r.tools,
		Temperature: anthropic.Float(r.opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var resp *anthropic.Message
	start := time.Now()
	err := r.opts.Retry.Do(ctx, retryable, func(ctx context.Context) error {
		if r.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
		}
		m, err := r.client.Messages.New(ctx, params)
		if err != nil {
			r.log.Warn("inference attempt failed", slog.Any("err", err))
			return err
		}
		resp = m
		return nil
	})

	fields := map[string]any{
		"turn_id":     turnID,
		"model":       string(r.opts.Model),
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = "inference error"
		r.opts.Events.Emit("inference", fields)
		return memory.Message{}, errorsx.Wrap(fmt.Errorf("inference: %w", err), errorsx.ReasonInference)
	}
	fields["input_tokens"] = resp.Usage.InputTokens
	fields["output_tokens"] = resp.Usage.OutputTokens
	fields["stop_reason"] = string(resp.StopReason)
	r.opts.Events.Emit("inference", fields)

	return fromResponse(resp), nil
}

// retryable reports whether an inference error is worth another attempt:
// transport failures, rate limiting and server errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

// splitSystem pulls system messages out of the history; the API takes them
// as a separate parameter.
func splitSystem(msgs []memory.Message) (string, []memory.Message) {
	var system []string
	rest := make([]memory.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == memory.RoleSystem {
			if t := m.Text(); t != "" {
				system = append(system, t)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// toParams converts history to API messages. Tool results travel as user
// tool_result blocks, and consecutive messages with the same API role are
// merged into one.
func toParams(msgs []memory.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		var blocks []anthropic.ContentBlockParamUnion

		switch m.Role {
		case memory.RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
			if t := m.Text(); t != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t))
			}
			for _, c := range m.ToolCalls {
				args := c.Arguments
				if len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, args, c.Name))
			}
		case memory.RoleTool:
			blocks = append(blocks, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		default:
			if t := m.Text(); t != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}

func fromResponse(resp *anthropic.Message) memory.Message {
	out := memory.Message{Role: memory.RoleAssistant}
	var text []string
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, v.Text)
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through to the tool implementation
			input := json.RawMessage(v.JSON.Input.Raw())
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			out.ToolCalls = append(out.ToolCalls, memory.ToolCall{ID: v.ID, Name: v.Name, Arguments: input})
		}
	}
	out.Content = strings.Join(text, "\n")
	return out
}
