package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
)

// passthroughEnv is the only parent environment the child inherits. Anything
// else (credentials, tokens, cloud config) stays out of the sandbox.
var passthroughEnv = []string{"PATH", "HOME", "USER", "SHELL", "LANG", "TERM", "TMPDIR"}

type runCommand struct {
	maxOutput   int
	maxDuration time.Duration
	defaultWait time.Duration
}

func NewRunCommand(limits config.Limits) tools.Tool {
	return &runCommand{
		maxOutput:   limits.MaxOutputBytes,
		maxDuration: limits.MaxShellDuration,
		defaultWait: limits.DefaultShellLimit,
	}
}

func (t *runCommand) ApprovalFor(_ context.Context, call tools.Call) (*tools.ApprovalPlan, bool) {
	command := call.String("command")
	return &tools.ApprovalPlan{
		Kind:    "run_command",
		Summary: fmt.Sprintf("Run shell command: %s", firstLine(command)),
		Details: map[string]any{"command": command},
	}, true
}

func (t *runCommand) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	command := call.String("command")
	if strings.TrimSpace(command) == "" {
		return tools.Failf(call, runtimeerrors.KindIO, "missing 'command'"), nil
	}

	ws := tools.WorkspaceFromContext(ctx)
	if ws == nil {
		return tools.Failf(call, runtimeerrors.KindIO, "no workspace bound to call"), nil
	}

	cwd := ws.RootPath
	if dir := call.String("cwd"); dir != "" {
		resolved, _, err := resolvePath(ctx, dir)
		if err != nil {
			return tools.Fail(call, err), nil
		}
		cwd = resolved
	}

	wait := t.defaultWait
	if secs := call.Int("timeout_seconds", 0); secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > t.maxDuration {
		wait = t.maxDuration
	}

	runCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = cwd
	cmd.Env = childEnv(call.Arguments["env"])

	var stdout, stderr bytes.Buffer
	outWriter := &cappedWriter{buf: &stdout, max: t.maxOutput}
	errWriter := &cappedWriter{buf: &stderr, max: t.maxOutput}
	cmd.Stdout = outWriter
	cmd.Stderr = errWriter

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		// Deadline kills surface as an ExitError (signal), so check the
		// context before inspecting the exit status.
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return tools.Fail(call, runtimeerrors.New(runtimeerrors.KindTimeout,
				"command exceeded %s", wait)), nil
		case errors.As(runErr, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return tools.Fail(call, runtimeerrors.Wrap(runtimeerrors.KindIO, runErr, "run command")), nil
		}
	}

	content := formatCommandOutput(stdout.String(), stderr.String(), exitCode)
	metadata := map[string]any{
		"exit_code":        exitCode,
		"duration_ms":      elapsed.Milliseconds(),
		"stdout_truncated": outWriter.truncated,
		"stderr_truncated": errWriter.truncated,
	}
	if exitCode != 0 {
		result := tools.Failf(call, runtimeerrors.KindIO, "command exited with code %d", exitCode)
		result.Content = content
		result.Metadata = metadata
		return result, nil
	}
	return tools.Ok(call, content, metadata), nil
}

// childEnv builds the minimal environment plus any caller-provided overrides.
func childEnv(overrides any) []string {
	env := make([]string, 0, len(passthroughEnv)+4)
	for _, key := range passthroughEnv {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	if extra, ok := overrides.(map[string]any); ok {
		for key, value := range extra {
			if text, ok := value.(string); ok {
				env = append(env, key+"="+text)
			}
		}
	}
	return env
}

func formatCommandOutput(stdout, stderr string, exitCode int) string {
	var out strings.Builder
	if stdout != "" {
		out.WriteString(stdout)
	}
	if stderr != "" {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString("stderr:\n")
		out.WriteString(stderr)
	}
	if out.Len() == 0 {
		fmt.Fprintf(&out, "(no output, exit code %d)", exitCode)
	}
	return out.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " ..."
	}
	return s
}

// cappedWriter accepts writes until max bytes, then discards the rest and
// marks the stream truncated. The child keeps running either way.
type cappedWriter struct {
	buf       *bytes.Buffer
	max       int
	truncated bool
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	remaining := w.max - w.buf.Len()
	if remaining <= 0 {
		w.markTruncated()
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.markTruncated()
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *cappedWriter) markTruncated() {
	if !w.truncated {
		w.truncated = true
		w.buf.WriteString("\n... [output truncated]")
	}
}

func (t *runCommand) Definition() tools.Definition {
	return tools.Definition{
		Name:        "run_command",
		Description: "Run a shell command in the workspace with a minimal environment, bounded output, and a hard timeout.",
		InputSchema: tools.ParameterSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"command":         {Type: "string", Description: "Shell command line, executed with sh -c"},
				"cwd":             {Type: "string", Description: "Working directory relative to the workspace root"},
				"timeout_seconds": {Type: "integer", Description: "Time limit, clamped to the configured maximum"},
				"env":             {Type: "object", Description: "Extra environment variables for this invocation"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *runCommand) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:             "run_command",
		Category:         "shell",
		Tags:             []string{"shell", "exec"},
		Permission:       tools.PermissionShell,
		RequiresApproval: true,
	}
}
