package plugin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-dev/waxwing/pkg/permission"
	"github.com/waxwing-dev/waxwing/pkg/sandbox"
)

func TestResolvedID(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit id wins", Config{Path: "/plugins/thumb.wasm", ID: "my-plugin"}, "my-plugin"},
		{"filename stem", Config{Path: "/plugins/thumb.wasm"}, "thumb"},
		{"no extension", Config{Path: "/plugins/thumb"}, "thumb"},
		{"empty path", Config{Path: ""}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolvedID())
		})
	}
}

func TestEnabledDefaultsToTrue(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"path":"/p.wasm"}`), &cfg))
	assert.True(t, cfg.IsEnabled())

	require.NoError(t, json.Unmarshal([]byte(`{"path":"/p.wasm","enabled":false}`), &cfg))
	assert.False(t, cfg.IsEnabled())
}

func TestSandboxSettingsBuildDefaults(t *testing.T) {
	cfg := SandboxSettings{}.Build()

	assert.Equal(t, uint64(sandbox.DefaultMemoryLimit), cfg.MemoryLimit)
	assert.Equal(t, uint64(sandbox.DefaultTimeoutMS), cfg.TimeoutMS)
	require.NotNil(t, cfg.FuelLimit)
	assert.Equal(t, uint64(sandbox.DefaultFuelLimit), *cfg.FuelLimit)

	// Baseline grants only.
	assert.True(t, cfg.Permissions.Contains(permission.Time()))
	assert.True(t, cfg.Permissions.Contains(permission.Random()))
	assert.Equal(t, 2, cfg.Permissions.Len())
}

func TestSandboxSettingsBuildGrants(t *testing.T) {
	fuel := uint64(5000)
	settings := SandboxSettings{
		MemoryLimit: 32 * 1024 * 1024,
		TimeoutMS:   10_000,
		FuelLimit:   &fuel,
		ReadPaths:   []string{"/tmp/in"},
		WritePaths:  []string{"/tmp/out"},
		EnvVars:     []string{"HOME"},
	}
	cfg := settings.Build()

	assert.Equal(t, uint64(32*1024*1024), cfg.MemoryLimit)
	assert.Equal(t, uint64(10_000), cfg.TimeoutMS)
	require.NotNil(t, cfg.FuelLimit)
	assert.Equal(t, fuel, *cfg.FuelLimit)

	assert.True(t, cfg.Permissions.Contains(permission.ReadPath("/tmp/in/a.txt")))
	assert.True(t, cfg.Permissions.Contains(permission.WritePath("/tmp/out/b.txt")))
	assert.True(t, cfg.Permissions.Contains(permission.Env("HOME")))
	assert.False(t, cfg.Permissions.Contains(permission.Env("PATH")))
	assert.False(t, cfg.Permissions.Contains(permission.WritePath("/tmp/in/a.txt")))
}

func TestFuelLimitZeroDisablesMetering(t *testing.T) {
	zero := uint64(0)
	cfg := SandboxSettings{FuelLimit: &zero}.Build()
	assert.Nil(t, cfg.FuelLimit)
}

func TestMetadataAPIVersion(t *testing.T) {
	m := NewMetadata("p", "p", "1.0.0")
	assert.NoError(t, m.CheckAPIVersion())

	m.APIVersion = "9.9.9"
	assert.ErrorIs(t, m.CheckAPIVersion(), ErrVersionMismatch)
}
