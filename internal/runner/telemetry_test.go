package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/toolagent/internal/runner"
	"github.com/petasbytes/toolagent/internal/telemetry"
	"github.com/petasbytes/toolagent/memory"
)

func readEvents(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, ev)
	}
	return out
}

func TestRun_EmitsTurnEvents(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGT_OBSERVE_JSON", "1")
	t.Setenv("AGT_ARTIFACTS_DIR", dir)

	var seen []string
	reg := newRegistry(t, echoTool("echo", &seen))
	cli := &scriptedClient{replies: []memory.Message{
		assistantCalls(memory.NewToolCall("c1", "echo", `{"text":"secret plans"}`)),
		assistantText("done"),
	}}
	ctx := telemetry.WithTurnID(context.Background(), "turn-fixed")

	turn, err := runner.New(memory.NewInMemoryStore(), cli, reg).Run(ctx, "my secret plans", reg.Specs())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if turn.ID != "turn-fixed" {
		t.Fatalf("turn id from context not used: %q", turn.ID)
	}

	events := readEvents(t, dir)
	var names []string
	for _, ev := range events {
		names = append(names, ev["event"].(string))
		if ev["turn_id"] != "turn-fixed" {
			t.Fatalf("event %v missing turn id", ev)
		}
	}
	want := "turn_started,history_sanitized,model_call,tool_exec,history_sanitized,model_call,turn_completed"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("events:\n got %s\nwant %s", got, want)
	}

	toolExec := events[3]
	if toolExec["tool_name"] != "echo" || toolExec["error"] != nil {
		t.Fatalf("unexpected tool_exec: %v", toolExec)
	}
	done := events[len(events)-1]
	if done["messages"] != float64(4) || done["tool_calls"] != float64(1) {
		t.Fatalf("unexpected turn_completed: %v", done)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if strings.Contains(string(raw), "secret") || strings.Contains(string(raw), "SECRET") {
		t.Fatalf("raw text leaked into events: %s", raw)
	}
}

func TestRun_ToolErrorEventUsesKind(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGT_OBSERVE_JSON", "1")
	t.Setenv("AGT_ARTIFACTS_DIR", dir)

	cli := &scriptedClient{replies: []memory.Message{
		assistantCalls(memory.NewToolCall("c1", "fly", `{}`)),
		assistantText("no such tool"),
	}}
	if _, err := runner.New(memory.NewInMemoryStore(), cli, newRegistry(t)).Run(context.Background(), "fly", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	for _, ev := range readEvents(t, dir) {
		if ev["event"] == "tool_exec" {
			if ev["error"] != "unknown tool" {
				t.Fatalf("expected error kind, got %v", ev["error"])
			}
			return
		}
	}
	t.Fatal("no tool_exec event")
}

func TestRun_NoEventsWhenObservationOff(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGT_OBSERVE_JSON", "")
	t.Setenv("AGT_ARTIFACTS_DIR", dir)
	if telemetry.ObserveEnabled() {
		t.Skip("observation enabled by configuration")
	}

	cli := &scriptedClient{replies: []memory.Message{assistantText("ok")}}
	if _, err := runner.New(memory.NewInMemoryStore(), cli, newRegistry(t)).Run(context.Background(), "hi", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("events written while observation off: %v", err)
	}
}
