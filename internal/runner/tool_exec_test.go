package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/petasbytes/figaro/internal/errorsx"
	"github.com/petasbytes/figaro/internal/logging"
	"github.com/petasbytes/figaro/internal/runner"
	"github.com/petasbytes/figaro/internal/telemetry"
	"github.com/petasbytes/figaro/memory"
	"github.com/petasbytes/figaro/tools"
)

type sleepInput struct {
	MS int `json:"ms"`
}

var sleepTool = tools.NewTool("sleep", "sleep for ms milliseconds",
	func(ctx context.Context, in sleepInput) (string, error) {
		select {
		case <-time.After(time.Duration(in.MS) * time.Millisecond):
			return "slept", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

var stubbornTool = tools.ToolDefinition{
	Name:        "stubborn",
	Description: "ignores cancellation",
	InputSchema: tools.GenerateSchema[struct{}](),
	Function: func(context.Context, json.RawMessage) (string, error) {
		time.Sleep(300 * time.Millisecond)
		return "late", nil
	},
}

var errTool = tools.ToolDefinition{
	Name:        "err_tool",
	Description: "always errors",
	InputSchema: tools.GenerateSchema[struct{}](),
	Function: func(context.Context, json.RawMessage) (string, error) {
		return "", errors.New("boom")
	},
}

var panicTool = tools.ToolDefinition{
	Name:        "panic_tool",
	Description: "always panics",
	InputSchema: tools.GenerateSchema[struct{}](),
	Function: func(context.Context, json.RawMessage) (string, error) {
		panic("kaboom")
	},
}

func newExecutor(t *testing.T, opts runner.ExecutorOptions) *runner.Executor {
	t.Helper()
	reg, err := tools.NewRegistry(tools.AddDefinition, tools.ReverseStringDefinition, sleepTool, stubbornTool, errTool, panicTool)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return runner.NewExecutor(reg, opts)
}

func call(id, name, args string) memory.ToolCall {
	return memory.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestExecutor_OrderAndCorrelationIDs(t *testing.T) {
	ex := newExecutor(t, runner.ExecutorOptions{Concurrency: 4, Timeout: time.Second})
	calls := []memory.ToolCall{
		call("c1", "sleep", `{"ms":40}`),
		call("c2", "add", `{"toAdd":[2,3]}`),
		call("c3", "sleep", `{"ms":0}`),
		call("c4", "reverse_string", `{"string":"olleh"}`),
	}
	results := ex.Execute(context.Background(), calls)
	if len(results) != len(calls) {
		t.Fatalf("want %d results, got %d", len(calls), len(results))
	}
	for i, res := range results {
		if res.Role != memory.RoleTool || res.ToolCallID != calls[i].ID {
			t.Fatalf("result %d: want id %s, got %+v", i, calls[i].ID, res)
		}
		if res.IsError {
			t.Fatalf("result %d unexpectedly failed: %s", i, res.Content)
		}
	}
	if results[1].Content != "5" || results[3].Content != "hello" {
		t.Fatalf("unexpected contents: %q %q", results[1].Content, results[3].Content)
	}
}

func TestExecutor_FailuresBecomeText(t *testing.T) {
	ex := newExecutor(t, runner.ExecutorOptions{Concurrency: 2, Timeout: 50 * time.Millisecond})
	tests := []struct {
		name     string
		call     memory.ToolCall
		contains string
		code     errorsx.ReasonCode
	}{
		{"unknown tool", call("u1", "ghost", `{}`), "unknown tool: ghost", errorsx.ReasonToolUnknown},
		{"invalid args", call("i1", "add", `{"bogus":1}`), "invalid tool arguments", errorsx.ReasonToolInvalidArgs},
		{"handler error", call("e1", "err_tool", `{}`), "boom", errorsx.ReasonToolFailed},
		{"panic", call("p1", "panic_tool", `{}`), "kaboom", errorsx.ReasonToolFailed},
		{"timeout honoring ctx", call("t1", "sleep", `{"ms":5000}`), "timed out", errorsx.ReasonToolTimeout},
		{"timeout ignoring ctx", call("t2", "stubborn", `{}`), "timed out", errorsx.ReasonToolTimeout},
		{"registered elsewhere", call("d1", "divide", `{"a":1,"b":0}`), "unknown tool", errorsx.ReasonToolUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ex.Execute(context.Background(), []memory.ToolCall{tt.call})
			if len(res) != 1 {
				t.Fatalf("want 1 result, got %d", len(res))
			}
			r := res[0]
			if !r.IsError || r.ToolCallID != tt.call.ID {
				t.Fatalf("expected error result for %s, got %+v", tt.call.ID, r)
			}
			if !strings.Contains(r.Content, tt.contains) {
				t.Fatalf("content %q does not contain %q", r.Content, tt.contains)
			}
			if r.Code != string(tt.code) {
				t.Fatalf("code: want %s, got %s", tt.code, r.Code)
			}
		})
	}
}

func TestExecutor_EmitsToolExecEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ex := newExecutor(t, runner.ExecutorOptions{Concurrency: 2, Events: telemetry.NewEmitter(true, path)})

	ctx := telemetry.WithTurnID(context.Background(), "turn-t")
	ex.Execute(ctx, []memory.ToolCall{call("a", "add", `{"toAdd":[1,1]}`), call("b", "err_tool", `{}`)})

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("want 2 tool_exec events, got %d", len(events))
	}
	byCall := map[string]map[string]any{}
	for _, e := range events {
		if e["event"] != "tool_exec" || e["turn_id"] != "turn-t" {
			t.Fatalf("unexpected event: %v", e)
		}
		byCall[e["call_id"].(string)] = e
	}
	if byCall["a"]["error"] != nil || byCall["a"]["output_size"] != float64(1) {
		t.Fatalf("success event: %v", byCall["a"])
	}
	if byCall["b"]["error"] != "tool_failed" || byCall["b"]["output_size"] != float64(0) {
		t.Fatalf("failure event: %v", byCall["b"])
	}
}

func TestExecutor_EmptyCalls(t *testing.T) {
	ex := newExecutor(t, runner.ExecutorOptions{})
	if got := ex.Execute(context.Background(), nil); got != nil {
		t.Fatalf("want nil, got %v", got)
	}
}
