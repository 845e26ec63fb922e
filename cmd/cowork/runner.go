package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesutfelat/cowork-oss-sub004/internal/eventlog"
	"github.com/mesutfelat/cowork-oss-sub004/internal/orchestrator"
	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
)

// scriptStep is one line of a task script.
type scriptStep struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// promptRunner interprets the task prompt as a script: one JSON object per
// line, each naming a tool and its arguments. Every step goes through the
// full dispatch pipeline, so permission gating and approvals apply exactly
// as they would for a model-issued call.
func promptRunner(app *App) orchestrator.Runner {
	return orchestrator.RunnerFunc(func(ctx context.Context, t *task.Task, session *orchestrator.Session) error {
		scanner := bufio.NewScanner(strings.NewReader(t.Prompt))
		step := 0
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := session.Checkpoint(ctx); err != nil {
				return err
			}
			step++

			var parsed scriptStep
			if err := json.Unmarshal([]byte(line), &parsed); err != nil {
				return fmt.Errorf("step %d: %w", step, err)
			}
			if parsed.Tool == "" {
				return fmt.Errorf("step %d: missing tool name", step)
			}

			result := app.Registry.Execute(ctx, tools.Call{
				ID:          id.NewCallID(),
				Name:        parsed.Tool,
				Arguments:   parsed.Args,
				TaskID:      t.ID,
				WorkspaceID: t.WorkspaceID,
			})
			printResult(parsed.Tool, result)
		}
		drainMessages(ctx, app, t.ID, session)
		return scanner.Err()
	})
}

// drainMessages records any operator/parent messages still queued when the
// script ends.
func drainMessages(ctx context.Context, app *App, taskID string, session *orchestrator.Session) {
	for {
		select {
		case text := <-session.Messages():
			event := eventlog.New(taskID, eventlog.TypeAssistantMessage, map[string]any{"text": text})
			if err := app.Log.Append(ctx, event); err != nil {
				app.Logger.Warn("event append failed: %v", err)
			}
		default:
			return
		}
	}
}

func printResult(tool string, result *tools.Result) {
	if result.Success {
		fmt.Printf("[%s] ok\n%s\n", tool, indent(result.Content))
		return
	}
	fmt.Printf("[%s] failed (%s): %s\n", tool, result.ErrorKind, result.Error)
	if result.Content != "" {
		fmt.Println(indent(result.Content))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
