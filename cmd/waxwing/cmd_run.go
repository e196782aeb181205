package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/waxwing-dev/waxwing/pkg/logging"
	"github.com/waxwing-dev/waxwing/pkg/state"
	"github.com/waxwing-dev/waxwing/pkg/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run <config>",
	Short: "Run a workflow from a configuration file",
	Example: `  waxwing run workflow.json
  waxwing run --history ~/.local/share/waxwing/history.db workflow.yaml
  waxwing run --events-log events.jsonl workflow.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("history", "", "Record run history to this sqlite database")
	runCmd.Flags().String("events-log", "", "Append structured events to this JSON-L file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := workflow.Load(args[0])
	if err != nil {
		return err
	}
	slog.Info("loaded workflow",
		"workflow", cfg.Workflow.Name, "watch_paths", len(cfg.Watch), "rules", len(cfg.Rules))

	opts := workflow.RunnerOptions{Logger: slog.Default()}

	if path, _ := cmd.Flags().GetString("history"); path != "" {
		store, err := state.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.History = store
	}

	if path, _ := cmd.Flags().GetString("events-log"); path != "" {
		sink, err := logging.NewJSONLWriter(path)
		if err != nil {
			return err
		}
		emitter := logging.NewEmitter(logging.EmitterConfig{
			RunID:    uuid.NewString(),
			Workflow: cfg.Workflow.Name,
		}, sink)
		defer emitter.Close()
		opts.Emitter = emitter
	}

	runner := workflow.NewRunner(cfg, opts)
	defer runner.Registry().Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runner.Run(ctx)
}
