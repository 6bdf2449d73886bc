package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/petasbytes/toolagent/memory"
)

const previewLen = 80

// terminalObserver prints turn progress. Assistant markdown is rendered with
// glamour when out is a terminal and printed as-is otherwise.
type terminalObserver struct {
	out      io.Writer
	renderer *glamour.TermRenderer

	progress  func(a ...any) string
	tool      func(a ...any) string
	assistant func(a ...any) string
	dim       func(a ...any) string
}

func newTerminalObserver(out io.Writer) *terminalObserver {
	o := &terminalObserver{
		out:       out,
		progress:  color.New(color.FgCyan).SprintFunc(),
		tool:      color.New(color.FgYellow).SprintFunc(),
		assistant: color.New(color.FgHiYellow, color.Bold).SprintFunc(),
		dim:       color.New(color.Faint).SprintFunc(),
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width := 80
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w
		}
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-10)); err == nil {
			o.renderer = r
		}
	}
	return o
}

func (o *terminalObserver) OnProgress(step string) {
	fmt.Fprintln(o.out, o.progress("… "+step))
}

func (o *terminalObserver) OnMessage(m memory.Message) {
	switch m.Role {
	case memory.RoleAssistant:
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(o.out, "%s %s(%s)\n", o.tool("→"), tc.Function.Name, tc.Function.Arguments)
		}
		if text := strings.TrimSpace(m.Text()); text != "" {
			fmt.Fprintf(o.out, "%s %s\n", o.assistant("Assistant:"), o.render(text))
		}
		if m.Refusal != nil && *m.Refusal != "" {
			fmt.Fprintf(o.out, "%s %s\n", o.assistant("Refused:"), *m.Refusal)
		}
	case memory.RoleTool:
		fmt.Fprintf(o.out, "%s %s\n", o.tool("←"), o.dim(preview(m.Text())))
	}
}

func (o *terminalObserver) render(text string) string {
	if o.renderer == nil {
		return text
	}
	out, err := o.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

// preview returns the first line of s, cut to previewLen runes.
func preview(s string) string {
	line, _, more := strings.Cut(s, "\n")
	r := []rune(line)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "…"
	}
	if more {
		return line + " …"
	}
	return line
}
