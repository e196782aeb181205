package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
	"github.com/waxwing-dev/waxwing/pkg/logging"
	"github.com/waxwing-dev/waxwing/pkg/plugin"
	"github.com/waxwing-dev/waxwing/pkg/state"
	"github.com/waxwing-dev/waxwing/pkg/watcher"
)

// scheduleTick is how often cron schedules are evaluated. Expressions have
// minute granularity; firing is deduplicated per minute.
const scheduleTick = 20 * time.Second

// RunnerOptions carries the runner's collaborators. Registry is created on
// demand when nil; Emitter and History are optional.
type RunnerOptions struct {
	Registry *plugin.Registry
	Logger   *slog.Logger
	Emitter  *logging.Emitter
	History  *state.Store
}

// Runner drives one workflow: it loads the configured plugins, watches the
// configured trees, matches events against rules, and executes rule
// actions in declared order. The loop is single-threaded and cooperative;
// cancellation is observed between events, never mid-action.
type Runner struct {
	cfg      Config
	registry *plugin.Registry
	logger   *slog.Logger
	emitter  *logging.Emitter
	history  *state.Store

	st        *api.WorkflowState
	gron      *gronx.Gronx
	lastFired map[string]time.Time
	runID     string
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg Config, opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = plugin.NewRegistry(logger)
	}
	return &Runner{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		emitter:   opts.Emitter,
		history:   opts.History,
		st:        api.NewWorkflowState(cfg.Workflow.Name),
		gron:      gronx.New(),
		lastFired: make(map[string]time.Time),
	}
}

// State returns the runner's counters. Valid to read after Run returns.
func (r *Runner) State() *api.WorkflowState { return r.st }

// Registry returns the plugin registry the runner dispatches into.
func (r *Runner) Registry() *plugin.Registry { return r.registry }

// Run blocks draining events until ctx is cancelled or the watcher closes.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting workflow", "workflow", r.cfg.Workflow.Name)
	r.st.Start()
	defer r.st.Stop()

	r.loadPlugins()

	if r.history != nil {
		runID, err := r.history.StartRun(r.cfg.Workflow.Name)
		if err != nil {
			r.logger.Warn("failed to record run", "error", err)
		} else {
			r.runID = runID
			defer func() {
				if err := r.history.FinishRun(r.runID, r.st); err != nil {
					r.logger.Warn("failed to finalise run", "error", err)
				}
			}()
		}
	}

	recursive := false
	for _, w := range r.cfg.Watch {
		if w.IsRecursive() {
			recursive = true
		}
	}
	w, err := watcher.New(recursive, r.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, wc := range r.cfg.Watch {
		if _, err := os.Stat(wc.Path); err != nil {
			r.logger.Warn("watch path does not exist, creating", "path", wc.Path)
			if err := os.MkdirAll(wc.Path, 0o755); err != nil {
				return errx.Wrap(api.ErrWatch, err)
			}
		}
		if err := w.Watch(wc.Path); err != nil {
			return err
		}
	}

	r.logger.Info("workflow is running",
		"workflow", r.cfg.Workflow.Name, "paths", len(w.Watched()), "rules", len(r.cfg.Rules))

	var tick <-chan time.Time
	if r.hasSchedules() {
		ticker := time.NewTicker(scheduleTick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.logFinal()
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				r.logFinal()
				return nil
			}
			r.st.RecordEvent()
			r.handleEvent(ctx, ev)
		case now := <-tick:
			r.fireSchedules(ctx, now)
		}
	}
}

func (r *Runner) logFinal() {
	r.logger.Info("workflow stopped",
		"workflow", r.cfg.Workflow.Name,
		"events", r.st.EventsProcessed,
		"actions", r.st.ActionsExecuted,
		"errors", r.st.ErrorCount)
}

// loadPlugins registers the configured plugins and discovers search paths.
// Load failures are reported and skipped; the workflow continues with the
// plugins that did load.
func (r *Runner) loadPlugins() {
	for _, pc := range r.cfg.Plugins {
		id, err := r.registry.Load(pc)
		if err != nil {
			r.logger.Error("failed to load plugin", "path", pc.Path, "error", err)
			continue
		}
		if inst, ok := r.registry.Get(id); ok && r.emitter != nil {
			_ = r.emitter.Emit(logging.EventPluginLoaded, "plugin loaded", id, nil,
				&logging.PluginLoadedData{Path: pc.Path, Actions: inst.Actions()})
		}
	}
	if len(r.cfg.PluginPaths) > 0 {
		loaded := r.registry.Discover(r.cfg.PluginPaths)
		r.logger.Info("plugin discovery complete", "loaded", loaded)
	}
}

func (r *Runner) hasSchedules() bool {
	for _, rule := range r.cfg.Rules {
		if rule.IsEnabled() && rule.Schedule != "" {
			return true
		}
	}
	return false
}

// fireSchedules emits one scheduled event per due rule per minute.
func (r *Runner) fireSchedules(ctx context.Context, now time.Time) {
	minute := now.Truncate(time.Minute)
	for _, rule := range r.cfg.Rules {
		if !rule.IsEnabled() || rule.Schedule == "" {
			continue
		}
		if last, ok := r.lastFired[rule.Name]; ok && !minute.After(last) {
			continue
		}
		due, err := r.gron.IsDue(rule.Schedule, now)
		if err != nil {
			r.logger.Warn("invalid schedule", "rule", rule.Name, "schedule", rule.Schedule, "error", err)
			continue
		}
		if !due {
			continue
		}
		r.lastFired[rule.Name] = minute

		ev := api.NewEvent(api.EventKind{Type: api.EventScheduled, Schedule: rule.Schedule}, "schedule")
		r.st.RecordEvent()
		r.executeRule(ctx, rule, ev)
	}
}

// handleEvent runs every enabled matching rule against the event, in
// configuration order.
func (r *Runner) handleEvent(ctx context.Context, ev api.Event) {
	for _, rule := range r.cfg.Rules {
		if !rule.IsEnabled() || !r.ruleMatches(rule, ev) {
			continue
		}
		r.logger.Info("rule matched", "rule", rule.Name, "event", string(ev.Kind.Type), "path", ev.Kind.Path)
		if r.emitter != nil {
			_ = r.emitter.Emit(logging.EventRuleMatched, "rule matched", "", nil,
				&logging.RuleMatchedData{Rule: rule.Name, EventID: ev.ID, Path: ev.Kind.Path})
		}
		r.executeRule(ctx, rule, ev)
	}
}

// ruleMatches checks the trigger list and filename patterns. Scheduled
// events match only the rule whose schedule fired them.
func (r *Runner) ruleMatches(rule RuleConfig, ev api.Event) bool {
	if ev.Kind.Type == api.EventScheduled {
		return rule.Schedule != "" && rule.Schedule == ev.Kind.Schedule
	}

	matched := false
	for _, trigger := range rule.Triggers() {
		if trigger.Matches(ev.Kind.Type) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	if len(rule.Patterns) == 0 {
		return true
	}
	name := filepath.Base(ev.Kind.Path)
	for _, pattern := range rule.Patterns {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			r.logger.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// executeRule runs the rule's actions in declared order. Failures count
// against the workflow's error counter but never stop the loop.
func (r *Runner) executeRule(ctx context.Context, rule RuleConfig, ev api.Event) {
	for _, ac := range rule.Actions {
		action, err := ac.Build(r.registry)
		if err != nil {
			r.logger.Error("invalid action config", "rule", rule.Name, "error", err)
			r.st.RecordError()
			continue
		}

		start := time.Now()
		result, err := action.Execute(ctx, ev)
		elapsed := time.Since(start)
		if err != nil {
			r.logger.Error("action error", "rule", rule.Name, "action", action.Name(), "error", err)
			r.st.RecordError()
			result = api.Fail(err.Error())
		} else {
			r.st.RecordAction()
			if result.Success {
				r.logger.Info("action succeeded", "action", action.Name(), "message", result.Message)
			} else {
				r.logger.Warn("action failed", "action", action.Name(), "message", result.Message)
				r.st.RecordError()
			}
		}

		if r.emitter != nil {
			_ = r.emitter.Emit(logging.EventActionResult, result.Message, "", nil,
				&logging.ActionResultData{
					Rule:       rule.Name,
					Action:     action.Name(),
					Success:    result.Success,
					Message:    result.Message,
					DurationMS: elapsed.Milliseconds(),
				})
		}
		if r.history != nil && r.runID != "" {
			if err := r.history.RecordAction(r.runID, rule.Name, action.Name(), result); err != nil {
				r.logger.Warn("failed to record action", "error", err)
			}
		}
	}
}
