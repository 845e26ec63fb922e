package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := appOptions{}

	root := &cobra.Command{
		Use:           "cowork",
		Short:         "Task-execution runtime with sandboxed tools and human approval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path")
	root.PersistentFlags().StringVar(&opts.workspaceRoot, "workspace", "", "workspace root directory (default: cwd)")
	root.PersistentFlags().BoolVar(&opts.autoApprove, "yes", false, "approve every gated action without prompting")
	root.PersistentFlags().BoolVar(&opts.denyAll, "deny", false, "deny every gated action without prompting")
	root.PersistentFlags().BoolVar(&opts.allowShell, "allow-shell", false, "grant the shell capability")
	root.PersistentFlags().BoolVar(&opts.allowDelete, "allow-delete", false, "grant the delete capability")
	root.PersistentFlags().BoolVar(&opts.allowNetwork, "allow-network", false, "grant the network capability")

	root.AddCommand(newRunCommand(&opts))
	root.AddCommand(newToolCommand(&opts))
	root.AddCommand(newToolsCommand(&opts))
	root.AddCommand(newVersionCommand())
	return root
}

func newRunCommand(opts *appOptions) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "run [script-file]",
		Short: "Run a task script (one JSON tool call per line; - for stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(args)
			if err != nil {
				return err
			}

			app, err := buildApp(*opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			finished, err := app.Orchestrator.Run(ctx, task.CreateSpec{
				Title:       title,
				Prompt:      script,
				WorkspaceID: app.Workspace.ID,
			})
			app.Orchestrator.Wait()
			if err != nil {
				return err
			}
			fmt.Printf("task %s finished: %s\n", finished.ID, finished.Status)
			if finished.Status != task.StatusCompleted {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "cli run", "task title")
	return cmd
}

func readScript(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read script %s: %w", args[0], err)
	}
	return string(data), nil
}

func newToolCommand(opts *appOptions) *cobra.Command {
	var argsJSON string
	cmd := &cobra.Command{
		Use:   "tool <name>",
		Short: "Execute a single tool call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &callArgs); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			app, err := buildApp(*opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result := app.Registry.Execute(ctx, tools.Call{
				ID:          id.NewCallID(),
				Name:        args[0],
				Arguments:   callArgs,
				WorkspaceID: app.Workspace.ID,
			})
			printResult(args[0], result)
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&argsJSON, "args", "", "tool arguments as a JSON object")
	return cmd
}

func newToolsCommand(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools enabled for the current workspace permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(*opts)
			if err != nil {
				return err
			}
			defer app.Close()

			manifest, err := app.Registry.Manifest(context.Background(), app.Workspace.ID)
			if err != nil {
				return err
			}
			for _, def := range manifest {
				fmt.Printf("%-22s %s\n", def.Name, def.Description)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cowork", version)
		},
	}
}
