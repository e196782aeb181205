package sandbox

import (
	"github.com/waxwing-dev/waxwing/pkg/permission"
)

const (
	// DefaultMemoryLimit caps guest linear memory at 64 MiB.
	DefaultMemoryLimit = 64 * 1024 * 1024

	// DefaultTimeoutMS bounds one invocation to 30 seconds of wall clock.
	DefaultTimeoutMS = 30_000

	// DefaultFuelLimit bounds one invocation to 100M metered instructions.
	DefaultFuelLimit = 100_000_000
)

// Config fixes the resource budget and capability grants for every
// invocation a sandbox performs. It is immutable once the sandbox is built.
type Config struct {
	// MemoryLimit is the guest linear-memory ceiling in bytes.
	MemoryLimit uint64

	// TimeoutMS is the wall-clock deadline per invocation in milliseconds.
	TimeoutMS uint64

	// FuelLimit is the instruction budget per invocation. Nil disables
	// metering.
	FuelLimit *uint64

	// Permissions are the grants every host call is checked against.
	Permissions permission.Set

	// WorkDir resolves relative paths in guest requests.
	WorkDir string
}

// DefaultConfig returns the default budget with the baseline grants
// {time, random}.
func DefaultConfig() Config {
	fuel := uint64(DefaultFuelLimit)
	return Config{
		MemoryLimit: DefaultMemoryLimit,
		TimeoutMS:   DefaultTimeoutMS,
		FuelLimit:   &fuel,
		Permissions: permission.NewSet(permission.Time(), permission.Random()),
	}
}
