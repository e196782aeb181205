package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-dev/waxwing/pkg/api"
)

const jsonConfig = `{
  "workflow": {"name": "inbox-sort", "description": "sort downloads", "enabled": true},
  "watch": [{"path": "/tmp/watch", "recursive": false}],
  "rules": [
    {
      "name": "backup-pdfs",
      "patterns": ["*.pdf"],
      "events": ["created"],
      "actions": [{"type": "copy", "destination": "/tmp/backup"}]
    },
    {
      "name": "thumbnail",
      "patterns": ["*.png"],
      "actions": [{"type": "plugin", "plugin": "thumb", "action": "process", "config": {"size": 128}}]
    }
  ],
  "plugins": [
    {
      "path": "/plugins/thumb.wasm",
      "sandbox": {
        "memory_limit": 33554432,
        "timeout_ms": 5000,
        "read_paths": ["/tmp/watch"],
        "write_paths": ["/tmp/thumbs"],
        "env_vars": ["HOME"]
      }
    }
  ]
}`

const yamlConfig = `
workflow:
  name: nightly
rules:
  - name: report
    schedule: "0 2 * * *"
    actions:
      - type: plugin
        plugin: reporter
        action: generate
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "workflow.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, "inbox-sort", cfg.Workflow.Name)
	assert.Equal(t, "1.0.0", cfg.Workflow.Version)
	require.Len(t, cfg.Watch, 1)
	assert.False(t, cfg.Watch[0].IsRecursive())

	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, []Trigger{TriggerCreated}, cfg.Rules[0].Triggers())
	assert.Equal(t, []Trigger{TriggerCreated, TriggerModified}, cfg.Rules[1].Triggers(),
		"events default to created+modified")

	pluginAction := cfg.Rules[1].Actions[0]
	assert.Equal(t, ActionPlugin, pluginAction.Type)
	assert.Equal(t, "thumb", pluginAction.Plugin)

	require.Len(t, cfg.Plugins, 1)
	sb := cfg.Plugins[0].Sandbox
	assert.Equal(t, uint64(33554432), sb.MemoryLimit)
	assert.Equal(t, uint64(5000), sb.TimeoutMS)
	assert.Equal(t, []string{"/tmp/watch"}, sb.ReadPaths)
	assert.Equal(t, []string{"HOME"}, sb.EnvVars)
}

func TestLoadYAMLConfigWithScheduleOnly(t *testing.T) {
	cfg, err := Load(writeConfig(t, "workflow.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Workflow.Name)
	assert.Empty(t, cfg.Watch, "schedule-only workflows need no watch paths")
	assert.Equal(t, "0 2 * * *", cfg.Rules[0].Schedule)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/workflow.json")
	assert.ErrorIs(t, err, ErrLoadConfig)
}

func TestValidate(t *testing.T) {
	base := Example()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing name", func(c *Config) { c.Workflow.Name = "" }},
		{"no rules", func(c *Config) { c.Rules = nil }},
		{"no watch and no schedule", func(c *Config) { c.Watch = nil }},
		{"empty watch path", func(c *Config) { c.Watch[0].Path = "" }},
		{"rule without name", func(c *Config) { c.Rules[0].Name = "" }},
		{"rule without actions", func(c *Config) { c.Rules[0].Actions = nil }},
		{"copy without destination", func(c *Config) { c.Rules[0].Actions[0].Destination = "" }},
		{"unknown action type", func(c *Config) { c.Rules[0].Actions[0].Type = "teleport" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Example()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), api.ErrInvalidConfig)
		})
	}
}

func TestTriggerMatching(t *testing.T) {
	assert.True(t, TriggerCreated.Matches(api.EventFileCreated))
	assert.False(t, TriggerCreated.Matches(api.EventFileModified))
	assert.True(t, TriggerRenamed.Matches(api.EventFileRenamed))
	assert.True(t, TriggerSchedule.Matches(api.EventScheduled))
	assert.False(t, TriggerDeleted.Matches(api.EventManual))
}
