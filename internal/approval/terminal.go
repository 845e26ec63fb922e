package approval

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// TerminalApprover drives a Gate from an interactive terminal: it watches
// for new requests, renders them, and resolves from operator input.
type TerminalApprover struct {
	gate         *Gate
	in           *bufio.Reader
	out          io.Writer
	colorEnabled bool
}

func NewTerminalApprover(gate *Gate, colorEnabled bool) *TerminalApprover {
	return &TerminalApprover{
		gate:         gate,
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		colorEnabled: colorEnabled,
	}
}

// Run consumes requests until the watch channel closes or input fails.
// Intended to run on its own goroutine for the lifetime of a CLI session.
func (a *TerminalApprover) Run() {
	for req := range a.gate.Watch() {
		a.display(req)
		approved, reason := a.prompt()
		// The request may have timed out or been denied by cancellation
		// while the operator was deciding; a late resolve is a no-op.
		_ = a.gate.Resolve(req.ID, approved, reason)
	}
}

func (a *TerminalApprover) display(req *Request) {
	separator := strings.Repeat("=", 72)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.colorize(separator, color.FgCyan))
	fmt.Fprintln(a.out, a.colorize(fmt.Sprintf("Approval required: %s", req.Kind), color.FgYellow, color.Bold))
	fmt.Fprintln(a.out, a.colorize(fmt.Sprintf("Task: %s", req.TaskID), color.FgWhite))
	fmt.Fprintln(a.out, a.colorize(separator, color.FgCyan))
	if req.Summary != "" {
		fmt.Fprintln(a.out, req.Summary)
	}
	if diff, ok := req.Details["diff"].(string); ok && diff != "" {
		fmt.Fprintln(a.out, a.colorize("Changes:", color.FgCyan))
		fmt.Fprintln(a.out, diff)
	}
	if command, ok := req.Details["command"].(string); ok && command != "" {
		fmt.Fprintln(a.out, a.colorize("Command:", color.FgCyan))
		fmt.Fprintln(a.out, "  "+command)
	}
}

func (a *TerminalApprover) prompt() (bool, string) {
	for {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, a.colorize("Allow this action?", color.FgYellow, color.Bold))
		fmt.Fprintln(a.out, "  [y] Yes, allow")
		fmt.Fprintln(a.out, "  [n] No, deny")
		fmt.Fprint(a.out, a.colorize("Choice: ", color.FgCyan))

		line, err := a.in.ReadString('\n')
		if err != nil {
			return false, "input closed"
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "y", "yes":
			return true, "approved by user"
		case "n", "no", "":
			return false, "denied by user"
		default:
			fmt.Fprintln(a.out, a.colorize("Invalid choice. Enter y or n.", color.FgRed))
		}
	}
}

func (a *TerminalApprover) colorize(text string, attributes ...color.Attribute) string {
	if !a.colorEnabled {
		return text
	}
	return color.New(attributes...).Sprint(text)
}

// AutoApprover resolves every request immediately with a fixed decision.
// Used by tests and unattended runs.
type AutoApprover struct {
	gate    *Gate
	approve bool
}

func NewAutoApprover(gate *Gate, approve bool) *AutoApprover {
	return &AutoApprover{gate: gate, approve: approve}
}

// Run consumes requests until the watch channel closes.
func (a *AutoApprover) Run() {
	reason := "auto-approved"
	if !a.approve {
		reason = "auto-denied"
	}
	for req := range a.gate.Watch() {
		_ = a.gate.Resolve(req.ID, a.approve, reason)
	}
}
