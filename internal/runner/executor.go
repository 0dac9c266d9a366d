package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/figaro/internal/errorsx"
	"github.com/petasbytes/figaro/internal/telemetry"
	"github.com/petasbytes/figaro/memory"
	"github.com/petasbytes/figaro/tools"
	"github.com/sourcegraph/conc/iter"
)

// ErrUnknownTool is reported for calls naming a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ToolRunner answers tool calls with tool result messages.
type ToolRunner interface {
	Execute(ctx context.Context, calls []memory.ToolCall) []memory.Message
}

type ExecutorOptions struct {
	// Timeout bounds each call; zero disables it.
	Timeout time.Duration
	// Concurrency caps calls in flight; values below 1 mean one at a time.
	Concurrency int
	Events      *telemetry.Emitter
	Logger      *slog.Logger
}

// Executor runs tool calls against a registry. Failures never escape as
// errors; they become tool results with IsError set and a reason code.
type Executor struct {
	registry *tools.Registry
	opts     ExecutorOptions
	log      *slog.Logger
}

func NewExecutor(registry *tools.Registry, opts ExecutorOptions) *Executor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Executor{registry: registry, opts: opts, log: log}
}

// Execute runs calls concurrently and returns one result per call, in call order.
func (e *Executor) Execute(ctx context.Context, calls []memory.ToolCall) []memory.Message {
	if len(calls) == 0 {
		return nil
	}
	mapper := iter.Mapper[memory.ToolCall, memory.Message]{MaxGoroutines: e.opts.Concurrency}
	return mapper.Map(calls, func(c *memory.ToolCall) memory.Message {
		return e.execOne(ctx, *c)
	})
}

func (e *Executor) execOne(ctx context.Context, call memory.ToolCall) memory.Message {
	start := time.Now()
	out, err := e.invoke(ctx, call)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"turn_id":     turnID,
		"tool_name":   call.Name,
		"call_id":     call.ID,
		"duration_ms": time.Since(start).Milliseconds(),
		"input_size":  len(call.Arguments),
		"output_size": len(out),
		"error":       nil,
	}

	if err != nil {
		reason := errorsx.Reason(err)
		// Emit the reason rather than the text to avoid leaking payloads in telemetry
		fields["error"] = string(reason)
		e.opts.Events.Emit("tool_exec", fields)
		e.log.Info("tool failed", "tool", call.Name, "call_id", call.ID, "reason", reason, slog.Any("err", err))

		res := memory.ToolResult(call.ID, err.Error(), true)
		res.Code = string(reason)
		return res
	}
	e.opts.Events.Emit("tool_exec", fields)
	e.log.Debug("tool done", "tool", call.Name, "call_id", call.ID, "output_size", len(out))
	return memory.ToolResult(call.ID, out, false)
}

type toolOutcome struct {
	out string
	err error
}

// invoke returns a reasoned error for every failure mode.
func (e *Executor) invoke(ctx context.Context, call memory.ToolCall) (string, error) {
	def, ok := e.registry.Lookup(call.Name)
	if !ok {
		return "", errorsx.Wrap(fmt.Errorf("%w: %s", ErrUnknownTool, call.Name), errorsx.ReasonToolUnknown)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	defer cancel()

	// Buffered so an abandoned call can still finish and exit.
	done := make(chan toolOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- toolOutcome{err: fmt.Errorf("tool %s panicked: %v", call.Name, p)}
			}
		}()
		out, err := def.Function(callCtx, call.Arguments)
		done <- toolOutcome{out: out, err: err}
	}()

	select {
	case res := <-done:
		switch {
		case res.err == nil:
			return res.out, nil
		case errors.Is(res.err, tools.ErrInvalidArguments):
			return "", errorsx.Wrap(res.err, errorsx.ReasonToolInvalidArgs)
		case errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil:
			return "", errorsx.Wrap(timeoutError(call.Name, e.opts.Timeout), errorsx.ReasonToolTimeout)
		default:
			return "", errorsx.Wrap(res.err, errorsx.ReasonToolFailed)
		}
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", errorsx.Wrap(fmt.Errorf("tool %s canceled: %w", call.Name, ctx.Err()), errorsx.ReasonCanceled)
		}
		return "", errorsx.Wrap(timeoutError(call.Name, e.opts.Timeout), errorsx.ReasonToolTimeout)
	}
}

func timeoutError(name string, d time.Duration) error {
	return fmt.Errorf("tool %s timed out after %s", name, d)
}
