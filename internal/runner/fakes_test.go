package runner_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

// scriptedClient returns replies in order and records what each call was sent.
type scriptedClient struct {
	replies []memory.Message
	errs    []error
	calls   [][]memory.Message
	specs   [][]tools.Spec
}

func (c *scriptedClient) Run(_ context.Context, msgs []memory.Message, specs []tools.Spec) (memory.Message, error) {
	i := len(c.calls)
	c.calls = append(c.calls, msgs)
	c.specs = append(c.specs, specs)
	if i < len(c.errs) && c.errs[i] != nil {
		return memory.Message{}, c.errs[i]
	}
	if i >= len(c.replies) {
		return memory.Message{}, fmt.Errorf("unexpected model call %d", i+1)
	}
	return c.replies[i], nil
}

func (c *scriptedClient) Model() string { return "scripted" }

func assistantText(text string) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, Content: memory.Text(text)}
}

func assistantCalls(calls ...memory.ToolCall) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, ToolCalls: calls}
}

// failingStore fails Append once it has accepted failAfter batches.
type failingStore struct {
	*memory.InMemoryStore
	failAfter int
	appends   int
}

func (s *failingStore) Append(ctx context.Context, msgs ...memory.Message) ([]memory.Message, error) {
	if s.appends >= s.failAfter {
		return nil, &memory.StoreError{Op: "append", Err: errors.New("disk full")}
	}
	s.appends++
	return s.InMemoryStore.Append(ctx, msgs...)
}

// stickyStore ignores Reset so earlier history survives into the turn.
type stickyStore struct {
	*memory.InMemoryStore
}

func (stickyStore) Reset(context.Context) error { return nil }

type recordingObserver struct {
	messages []memory.Message
	progress []string
}

func (o *recordingObserver) OnMessage(m memory.Message) { o.messages = append(o.messages, m) }
func (o *recordingObserver) OnProgress(s string)        { o.progress = append(o.progress, s) }

func echoTool(name string, seen *[]string) tools.Definition {
	type args struct {
		Text string `json:"text"`
	}
	return tools.New(name, "Echo.", func(_ context.Context, c tools.Call[args]) (any, error) {
		*seen = append(*seen, name+":"+c.Args.Text)
		return strings.ToUpper(c.Args.Text), nil
	})
}

func newRegistry(t *testing.T, defs ...tools.Definition) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(defs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func roles(msgs []memory.Message) string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role)
	}
	return strings.Join(out, ",")
}
