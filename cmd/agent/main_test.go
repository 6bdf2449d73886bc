package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/petasbytes/toolagent/memory"
)

func TestRun_MissingMessagePrintsUsage(t *testing.T) {
	for _, args := range [][]string{nil, {""}, {"-config", "agent.toml"}} {
		var stdout, stderr bytes.Buffer
		if code := run(args, &stdout, &stderr); code != 2 {
			t.Fatalf("args %q: exit code %d, want 2", args, code)
		}
		if !strings.Contains(stderr.String(), "usage: agent") {
			t.Fatalf("args %q: usage not printed: %q", args, stderr.String())
		}
		if stdout.Len() != 0 {
			t.Fatalf("args %q: unexpected stdout %q", args, stdout.String())
		}
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-nope", "hi"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code %d, want 2", code)
	}
}

func TestRun_BadConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", t.TempDir() + "/missing.toml", "hi"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "failed to decode config file") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestTerminalObserver(t *testing.T) {
	var out bytes.Buffer
	o := newTerminalObserver(&out)

	o.OnProgress("Waiting for the model")
	o.OnMessage(memory.UserMessage("hidden"))
	o.OnMessage(memory.Message{Role: memory.RoleAssistant, ToolCalls: []memory.ToolCall{
		memory.NewToolCall("c1", "get_weather", `{"location":"Paris"}`),
	}})
	o.OnMessage(memory.ToolResultMessage("c1", "Sunny in Paris\nsecond line"))
	o.OnMessage(memory.Message{Role: memory.RoleAssistant, Content: memory.Text("It is **sunny**.")})

	got := out.String()
	for _, want := range []string{
		"Waiting for the model",
		`get_weather({"location":"Paris"})`,
		"Sunny in Paris …",
		"It is **sunny**.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "hidden") || strings.Contains(got, "second line") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("x", previewLen+5)
	if got := preview(long); got != strings.Repeat("x", previewLen)+"…" {
		t.Fatalf("got %q", got)
	}
	if got := preview("one"); got != "one" {
		t.Fatalf("got %q", got)
	}
}
