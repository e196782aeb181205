// Package workflow loads workflow configurations, matches events against
// rules, and executes the configured actions, including sandboxed plugin
// actions.
package workflow

import (
	"github.com/spf13/viper"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
	"github.com/waxwing-dev/waxwing/pkg/plugin"
)

// Trigger names the event classes a rule can match.
type Trigger string

const (
	TriggerCreated  Trigger = "created"
	TriggerModified Trigger = "modified"
	TriggerDeleted  Trigger = "deleted"
	TriggerRenamed  Trigger = "renamed"
	TriggerSchedule Trigger = "scheduled"
)

// Matches reports whether an event type falls under the trigger.
func (t Trigger) Matches(kind api.EventType) bool {
	switch t {
	case TriggerCreated:
		return kind == api.EventFileCreated
	case TriggerModified:
		return kind == api.EventFileModified
	case TriggerDeleted:
		return kind == api.EventFileDeleted
	case TriggerRenamed:
		return kind == api.EventFileRenamed
	case TriggerSchedule:
		return kind == api.EventScheduled
	}
	return false
}

// WatchConfig names one directory tree to observe.
type WatchConfig struct {
	Path      string `json:"path" mapstructure:"path"`
	Recursive *bool  `json:"recursive,omitempty" mapstructure:"recursive"`
}

// IsRecursive defaults to true when unset.
func (w WatchConfig) IsRecursive() bool {
	return w.Recursive == nil || *w.Recursive
}

// RuleConfig matches events to a list of actions.
type RuleConfig struct {
	Name string `json:"name" mapstructure:"name"`

	// Patterns are filename globs; empty matches everything.
	Patterns []string `json:"patterns,omitempty" mapstructure:"patterns"`

	// Events defaults to created+modified when empty.
	Events []Trigger `json:"events,omitempty" mapstructure:"events"`

	// Schedule is a cron expression firing scheduled events for this
	// rule, independent of filesystem activity.
	Schedule string `json:"schedule,omitempty" mapstructure:"schedule"`

	Actions []ActionConfig `json:"actions" mapstructure:"actions"`

	Enabled *bool `json:"enabled,omitempty" mapstructure:"enabled"`
}

// IsEnabled defaults to true when unset.
func (r RuleConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Triggers returns the configured events or the default set.
func (r RuleConfig) Triggers() []Trigger {
	if len(r.Events) > 0 {
		return r.Events
	}
	return []Trigger{TriggerCreated, TriggerModified}
}

// Config is one complete workflow definition.
type Config struct {
	Workflow api.Workflow `json:"workflow" mapstructure:"workflow"`

	Watch []WatchConfig `json:"watch" mapstructure:"watch"`
	Rules []RuleConfig  `json:"rules" mapstructure:"rules"`

	// Plugins are loaded before the runner starts.
	Plugins []plugin.Config `json:"plugins,omitempty" mapstructure:"plugins"`

	// PluginPaths are discovered for additional *.wasm modules.
	PluginPaths []string `json:"plugin_paths,omitempty" mapstructure:"plugin_paths"`
}

// Load reads a workflow configuration file. The format follows the file
// extension; JSON and YAML are supported.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errx.Wrap(ErrLoadConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errx.Wrap(ErrLoadConfig, err)
	}
	if cfg.Workflow.Version == "" {
		cfg.Workflow.Version = "1.0.0"
	}
	if !v.IsSet("workflow.enabled") {
		cfg.Workflow.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural invariants: at least one watch path or
// scheduled rule, at least one rule, and valid actions throughout.
func (c Config) Validate() error {
	if c.Workflow.Name == "" {
		return errx.With(api.ErrInvalidConfig, ": workflow name is required")
	}
	if len(c.Rules) == 0 {
		return errx.With(api.ErrInvalidConfig, ": at least one rule is required")
	}

	scheduled := false
	for _, r := range c.Rules {
		if r.Schedule != "" {
			scheduled = true
		}
	}
	if len(c.Watch) == 0 && !scheduled {
		return errx.With(api.ErrInvalidConfig, ": at least one watch path is required")
	}
	for _, w := range c.Watch {
		if w.Path == "" {
			return errx.With(api.ErrInvalidConfig, ": watch path cannot be empty")
		}
	}

	for i, r := range c.Rules {
		if r.Name == "" {
			return errx.With(api.ErrInvalidConfig, ": rule %d has no name", i)
		}
		if len(r.Actions) == 0 {
			return errx.With(api.ErrInvalidConfig, ": rule %q has no actions", r.Name)
		}
		for _, a := range r.Actions {
			if err := a.Validate(); err != nil {
				return errx.With(api.ErrInvalidConfig, ": rule %q: %v", r.Name, err)
			}
		}
	}
	return nil
}

// Example returns a minimal runnable configuration, used by `waxwing init`.
func Example() Config {
	return Config{
		Workflow: api.Workflow{
			Name:        "example-workflow",
			Description: "Example filesystem workflow",
			Enabled:     true,
			Version:     "1.0.0",
		},
		Watch: []WatchConfig{{Path: "/tmp/watch"}},
		Rules: []RuleConfig{{
			Name:     "backup-pdfs",
			Patterns: []string{"*.pdf"},
			Events:   []Trigger{TriggerCreated},
			Actions: []ActionConfig{{
				Type:        ActionCopy,
				Destination: "/tmp/backup",
			}},
		}},
	}
}
