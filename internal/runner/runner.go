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
)

// ErrStepBudgetExceeded is returned when a turn needs more REASON phases than allowed.
var ErrStepBudgetExceeded = errors.New("exceeded step budget")

// DefaultMaxSteps bounds REASON phases when Options.MaxSteps is unset.
const DefaultMaxSteps = 8

// State is a control loop phase.
type State int

const (
	StateRetrieve State = iota
	StateReason
	StateAct
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRetrieve:
		return "RETRIEVE"
	case StateReason:
		return "REASON"
	case StateAct:
		return "ACT"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Augmenter produces the extra context message injected before history.
type Augmenter interface {
	Augment(ctx context.Context, msgs []memory.Message) (memory.Message, error)
}

type Options struct {
	SystemPrompt string
	MaxSteps     int
	// Retriever is optional; nil skips RETRIEVE.
	Retriever Augmenter
	Events    *telemetry.Emitter
	Logger    *slog.Logger
}

// Runner is immutable after New and safe to share across conversations.
type Runner struct {
	reasoner  Reasoner
	executor  ToolRunner
	retriever Augmenter
	system    string
	maxSteps  int
	events    *telemetry.Emitter
	log       *slog.Logger
}

func New(reasoner Reasoner, executor ToolRunner, opts Options) *Runner {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		reasoner:  reasoner,
		executor:  executor,
		retriever: opts.Retriever,
		system:    opts.SystemPrompt,
		maxSteps:  opts.MaxSteps,
		events:    opts.Events,
		log:       log,
	}
}

// Result is the outcome of one answered turn.
type Result struct {
	// Answer is the text after FINAL ANSWER:, or the trimmed final content.
	Answer string
	// Content is the final assistant message content, unmodified.
	Content  string
	Messages []memory.Message
	TurnID   string
	Steps    int
}

// Ask appends utterance to history and runs the loop to completion.
func (r *Runner) Ask(ctx context.Context, history []memory.Message, utterance string) (Result, error) {
	msgs := make([]memory.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, memory.User(utterance))

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	r.events.EmitQueryFeatures(ctx, utterance)

	out, steps, err := r.run(ctx, msgs)
	res := Result{Messages: out, TurnID: turnID, Steps: steps}
	if err != nil {
		return res, err
	}

	final := out[len(out)-1]
	res.Content = final.Content
	answer, ok := ExtractFinalAnswer(final.Content)
	if !ok {
		r.log.Warn("final answer marker missing; using raw text", "turn_id", turnID)
	}
	res.Answer = answer
	return res, nil
}

// Run drives msgs through the loop and returns the full sequence, starting
// with the system prompt.
func (r *Runner) Run(ctx context.Context, msgs []memory.Message) ([]memory.Message, error) {
	ctx, _ = telemetry.EnsureTurnID(ctx)
	out, _, err := r.run(ctx, msgs)
	return out, err
}

func (r *Runner) run(ctx context.Context, input []memory.Message) ([]memory.Message, int, error) {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	log := r.log.With("turn_id", turnID)
	start := time.Now()

	var conv *memory.Conversation
	steps := 0
	state := StateRetrieve

	finish := func(err error) ([]memory.Message, int, error) {
		var out []memory.Message
		if conv != nil {
			out = conv.Messages()
		}
		fields := map[string]any{
			"turn_id":     turnID,
			"steps":       steps,
			"messages":    len(out),
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       nil,
		}
		if err != nil {
			fields["error"] = string(errorsx.Reason(err))
		}
		r.events.Emit("turn_done", fields)
		return out, steps, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(errorsx.Wrap(err, errorsx.ReasonCanceled))
		}
		log.Debug("state", "state", state, "step", steps)

		switch state {
		case StateRetrieve:
			c, err := r.retrieve(ctx, input)
			if err != nil {
				return finish(err)
			}
			conv = c
			state = StateReason

		case StateReason:
			if steps == r.maxSteps {
				log.Warn("step budget exhausted", "max_steps", r.maxSteps)
				return finish(errorsx.Wrap(fmt.Errorf("%w: %d reasoning steps", ErrStepBudgetExceeded, r.maxSteps), errorsx.ReasonStepBudget))
			}
			steps++
			msg, err := r.reasoner.Infer(ctx, conv.Messages())
			if err != nil {
				return finish(errorsx.Wrap(err, errorsx.ReasonInference))
			}
			msg.Role = memory.RoleAssistant
			if err := conv.Append(msg); err != nil {
				return finish(err)
			}
			if msg.HasToolCalls() {
				state = StateAct
			} else {
				state = StateDone
			}

		case StateAct:
			last, _ := conv.Last()
			results := r.executor.Execute(ctx, last.ToolCalls)
			if err := conv.Append(results...); err != nil {
				return finish(err)
			}
			state = StateReason

		case StateDone:
			log.Info("turn done", "steps", steps, "messages", conv.Len())
			return finish(nil)
		}
	}
}

// retrieve builds the initial conversation: system prompt, retrieved example,
// then the caller's history. A system message already leading the input
// replaces the configured prompt.
func (r *Runner) retrieve(ctx context.Context, input []memory.Message) (*memory.Conversation, error) {
	var head []memory.Message
	rest := input
	switch {
	case len(input) > 0 && input[0].Role == memory.RoleSystem:
		head, rest = input[:1], input[1:]
	case r.system != "":
		head = []memory.Message{memory.System(r.system)}
	}

	msgs := make([]memory.Message, 0, len(input)+2)
	msgs = append(msgs, head...)
	if r.retriever != nil {
		example, err := r.retriever.Augment(ctx, rest)
		if err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("retrieve: %w", err), errorsx.ReasonRetrieval)
		}
		msgs = append(msgs, example)
	}
	msgs = append(msgs, rest...)
	return memory.NewConversation(msgs...)
}
