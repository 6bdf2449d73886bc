package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/petasbytes/toolagent/internal/metrics"
	"github.com/petasbytes/toolagent/internal/provider"
	"github.com/petasbytes/toolagent/internal/telemetry"
	"github.com/petasbytes/toolagent/internal/windowing"
	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

// Observer receives progress while a turn runs. Both methods are called on
// the goroutine running the turn.
type Observer interface {
	// OnMessage is called after a message has been stored.
	OnMessage(memory.Message)
	// OnProgress describes the step about to start.
	OnProgress(string)
}

type nopObserver struct{}

func (nopObserver) OnMessage(memory.Message) {}
func (nopObserver) OnProgress(string)        {}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver sets the observer notified during a turn. nil disables notifications.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTokenBudget limits the estimated size of the history sent to the model.
// A budget <= 0 sends the whole sanitized history.
func WithTokenBudget(n int) Option {
	return func(r *Runner) { r.budget = n }
}

// WithTokenCounter replaces the heuristic token estimator used for the budget.
func WithTokenCounter(c windowing.TokenCounter) Option {
	return func(r *Runner) {
		if c != nil {
			r.counter = c
		}
	}
}

type Runner struct {
	store    memory.Store
	client   provider.Client
	registry *tools.Registry
	observer Observer
	logger   *slog.Logger
	budget   int
	counter  windowing.TokenCounter
}

func New(store memory.Store, client provider.Client, registry *tools.Registry, opts ...Option) *Runner {
	r := &Runner{
		store:    store,
		client:   client,
		registry: registry,
		observer: nopObserver{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		counter:  windowing.HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Turn is the outcome of one Run.
type Turn struct {
	ID string
	// Conversation is the full stored conversation at the end of the turn.
	Conversation []memory.Message
	// DroppedOrphans counts tool messages the sanitizer removed across both model calls.
	DroppedOrphans int
	// ToolErrors counts tool calls whose result is an error text.
	ToolErrors int
}

// Reply returns the text of the last assistant message, or "".
func (t Turn) Reply() string {
	for i := len(t.Conversation) - 1; i >= 0; i-- {
		if t.Conversation[i].Role == memory.RoleAssistant {
			return t.Conversation[i].Text()
		}
	}
	return ""
}

// Run executes one turn for userMessage, offering specs to the model.
// The store is reset first. On error the messages appended so far stay stored.
func (r *Runner) Run(ctx context.Context, userMessage string, specs []tools.Spec) (turn Turn, err error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	turn.ID = turnID
	start := time.Now()
	log := r.logger.With(slog.String("turn_id", turnID))

	started := map[string]any{
		"turn_id": turnID,
		"model":   r.client.Model(),
		"tools":   len(specs),
	}
	for k, v := range metrics.CountFeatures(userMessage).Fields() {
		started["user_"+k] = v
	}
	telemetry.Emit("turn_started", started)

	defer func() {
		fields := map[string]any{
			"turn_id":         turnID,
			"duration_ms":     time.Since(start).Milliseconds(),
			"dropped_orphans": turn.DroppedOrphans,
			"tool_errors":     turn.ToolErrors,
			"error":           nil,
		}
		for k, v := range metrics.Summarize(turn.Conversation).Fields() {
			fields[k] = v
		}
		if err != nil {
			fields["error"] = err.Error()
			log.Error("Turn failed", slog.String("error", err.Error()), slog.Duration("duration", time.Since(start)))
		} else {
			log.Info("Turn completed", slog.Int("messages", len(turn.Conversation)), slog.Duration("duration", time.Since(start)))
		}
		telemetry.Emit("turn_completed", fields)
	}()

	r.observer.OnProgress("Starting a new conversation")
	if err = r.store.Reset(ctx); err != nil {
		return turn, fmt.Errorf("reset conversation: %w", err)
	}
	if err = r.appendMessage(ctx, &turn, memory.UserMessage(userMessage)); err != nil {
		return turn, err
	}

	r.observer.OnProgress("Waiting for the model")
	reply, err := r.callModel(ctx, log, &turn, specs)
	if err != nil {
		return turn, err
	}
	if err = r.appendMessage(ctx, &turn, reply); err != nil {
		return turn, err
	}

	if reply.HasToolCalls() {
		dc := tools.DispatchContext{UserMessage: userMessage}
		for _, call := range reply.ToolCalls {
			r.observer.OnProgress("Running " + call.Function.Name)
			res := r.dispatch(ctx, log, turnID, call, dc)
			if res.Err != nil {
				turn.ToolErrors++
			}
			if err = r.appendMessage(ctx, &turn, res.Message()); err != nil {
				return turn, err
			}
		}

		r.observer.OnProgress("Waiting for the model")
		var final memory.Message
		final, err = r.callModel(ctx, log, &turn, specs)
		if err != nil {
			return turn, err
		}
		if err = r.appendMessage(ctx, &turn, final); err != nil {
			return turn, err
		}
	}

	err = r.refresh(ctx, &turn)
	return turn, err
}

// appendMessage stores m, records the stored copy on turn and notifies the observer.
func (r *Runner) appendMessage(ctx context.Context, turn *Turn, m memory.Message) error {
	stored, err := r.store.Append(ctx, m)
	if err != nil {
		return fmt.Errorf("append %s message: %w", m.Role, err)
	}
	turn.Conversation = append(turn.Conversation, stored...)
	for _, s := range stored {
		r.observer.OnMessage(s)
	}
	return nil
}

// refresh replaces the turn's conversation with the stored one.
func (r *Runner) refresh(ctx context.Context, turn *Turn) error {
	msgs, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list conversation: %w", err)
	}
	turn.Conversation = msgs
	return nil
}

// callModel sanitizes the stored history and asks the model for the next message.
func (r *Runner) callModel(ctx context.Context, log *slog.Logger, turn *Turn, specs []tools.Spec) (memory.Message, error) {
	history, err := r.store.List(ctx)
	if err != nil {
		return memory.Message{}, fmt.Errorf("list conversation: %w", err)
	}

	window, report, err := windowing.Prepare(history, r.budget, r.counter)
	turn.DroppedOrphans += report.Sanitize.DroppedOrphans
	telemetry.Emit("history_sanitized", map[string]any{
		"turn_id":            turn.ID,
		"input":              report.Sanitize.Input,
		"emitted":            report.Sanitize.Emitted,
		"dropped_orphans":    report.Sanitize.DroppedOrphans,
		"budget":             report.Window.Budget,
		"total_estimated":    report.Window.Total,
		"included_groups":    report.Window.IncludedGroups,
		"skipped_groups":     report.Window.SkippedGroups,
		"over_budget_newest": report.Window.OverBudgetNewest,
	})
	if report.Sanitize.DroppedOrphans > 0 {
		log.Warn("Dropped orphan tool messages", slog.Int("count", report.Sanitize.DroppedOrphans))
	}
	if err != nil {
		return memory.Message{}, err
	}

	model := r.client.Model()
	start := time.Now()
	reply, err := r.client.Run(ctx, window, specs)
	dur := time.Since(start)

	fields := map[string]any{
		"turn_id":     turn.ID,
		"model":       model,
		"duration_ms": dur.Milliseconds(),
		"messages":    len(window),
		"tool_calls":  len(reply.ToolCalls),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = "model error"
		telemetry.Emit("model_call", fields)
		log.Error("LLM call failed", slog.String("model", model), slog.Duration("duration", dur), slog.String("error", err.Error()))
		return memory.Message{}, fmt.Errorf("model call: %w", err)
	}
	telemetry.Emit("model_call", fields)
	log.Info("LLM call completed", slog.String("model", model), slog.Duration("duration", dur), slog.Int("tool_calls", len(reply.ToolCalls)))

	// The store only accepts assistant messages from the model.
	reply.Role = memory.RoleAssistant
	reply.ID, reply.Seq, reply.ToolCallID = "", 0, ""
	return reply, nil
}

// dispatch runs one tool call and reports it. Raw arguments and results stay
// out of telemetry; only their sizes are recorded.
func (r *Runner) dispatch(ctx context.Context, log *slog.Logger, turnID string, call memory.ToolCall, dc tools.DispatchContext) tools.Result {
	res := r.registry.Dispatch(ctx, call, dc)

	fields := map[string]any{
		"turn_id":     turnID,
		"tool_name":   call.Function.Name,
		"duration_ms": res.Duration.Milliseconds(),
		"input_size":  len(call.Function.Arguments),
		"output_size": len(res.Content),
		"error":       nil,
	}
	attrs := []any{
		slog.String("tool_name", call.Function.Name),
		slog.Duration("duration", res.Duration),
		slog.Bool("success", res.Err == nil),
	}
	if res.Err != nil {
		fields["error"] = errorKind(res.Err)
		attrs = append(attrs, slog.String("error", res.Err.Error()))
		log.Error("Tool execution failed", attrs...)
	} else {
		log.Info("Tool execution completed", attrs...)
	}
	telemetry.Emit("tool_exec", fields)
	return res
}

// errorKind maps a dispatch error onto its sentinel text so handler messages
// never reach the event log.
func errorKind(err error) string {
	for _, kind := range []error{tools.ErrArgumentParse, tools.ErrUnknownTool, tools.ErrArgumentValidation, tools.ErrToolExecution} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "tool error"
}
