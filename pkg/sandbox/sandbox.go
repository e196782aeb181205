// Package sandbox compiles and executes WebAssembly guests under declared
// resource limits. Every invocation runs in a fresh store with its own
// permission mediator, fuel budget, and wall-clock deadline; nothing is
// shared between invocations except the compiled module.
package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytecodealliance/wasmtime-go/v3"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/hostcall"
)

const (
	// HostModule is the import namespace guests link against.
	HostModule = "host"

	// HostRequestImport is the single mediated host import.
	HostRequestImport = "request"

	// GuestAllocExport is the allocator a guest must export so the host
	// can place response bytes into guest memory. The leading underscore
	// keeps it out of the action namespace.
	GuestAllocExport = "_alloc"

	// epochTick is the granularity of the forced wall-clock interrupt.
	epochTick = 10 * time.Millisecond
)

// Module is a compiled guest, shared read-only across invocations.
type Module struct {
	inner *wasmtime.Module
}

// Actions enumerates the module's callable entry points: exported
// functions whose names do not begin with "_".
func (m *Module) Actions() []string {
	var actions []string
	for _, exp := range m.inner.Exports() {
		if exp.Type().FuncType() == nil {
			continue
		}
		if strings.HasPrefix(exp.Name(), "_") {
			continue
		}
		actions = append(actions, exp.Name())
	}
	sort.Strings(actions)
	return actions
}

// LogEntry is one guest log line captured during an invocation.
type LogEntry struct {
	Level     hostcall.Level `json:"level"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// ActionOutcome is the materialised result of one entry-point call.
type ActionOutcome struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Output  json.RawMessage `json:"output,omitempty"`
	Logs    []LogEntry      `json:"logs,omitempty"`
}

// Sandbox executes guests under one immutable Config. It is safe for
// concurrent use; concurrent invocations get independent stores.
type Sandbox struct {
	engine *wasmtime.Engine
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

// New builds a sandbox with the given configuration. Close must be called
// to release the epoch ticker.
func New(cfg Config, logger *slog.Logger) (*Sandbox, error) {
	if logger == nil {
		logger = slog.Default()
	}

	wasmCfg := wasmtime.NewConfig()
	wasmCfg.SetEpochInterruption(true)
	if cfg.FuelLimit != nil {
		wasmCfg.SetConsumeFuel(true)
	}

	s := &Sandbox{
		engine: wasmtime.NewEngineWithConfig(wasmCfg),
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}

	// The epoch advances on a fixed tick; each store arms its own
	// deadline in tick units so a CPU-bound guest with no host calls is
	// still forcibly unblocked at its wall-clock limit.
	s.ticker = time.NewTicker(epochTick)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.engine.IncrementEpoch()
			case <-s.done:
				return
			}
		}
	}()

	return s, nil
}

// Close stops the epoch ticker. Invocations still running keep their fuel
// budget and the per-host-call deadline check, but the forced wall-clock
// interrupt no longer fires for them; new invocations must not be started
// after Close.
func (s *Sandbox) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
		s.ticker.Stop()
	}
}

// Config returns the sandbox configuration.
func (s *Sandbox) Config() Config { return s.cfg }

// Compile builds a module from raw wasm bytes.
func (s *Sandbox) Compile(wasm []byte) (*Module, error) {
	mod, err := wasmtime.NewModule(s.engine, wasm)
	if err != nil {
		return nil, errx.Wrap(ErrInvalidFormat, err)
	}
	return &Module{inner: mod}, nil
}

// CompileFile builds a module from a wasm file on disk.
func (s *Sandbox) CompileFile(path string) (*Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errx.Wrap(ErrLoadFailed, err)
	}
	return s.Compile(wasm)
}

// Execute runs one named entry point of a compiled module. Each call
// allocates a fresh store, fuel budget, deadline, and mediator; the guest
// suspends at every host import and resumes on the mediated response.
func (s *Sandbox) Execute(module *Module, action string, ctx PluginContext) (ActionOutcome, error) {
	start := time.Now()

	workDir := s.cfg.WorkDir
	if ctx.WorkDir != "" {
		workDir = ctx.WorkDir
	}

	var (
		logMu sync.Mutex
		logs  []LogEntry
	)
	mediator := hostcall.NewMediator(hostcall.MediatorConfig{
		Permissions: s.cfg.Permissions,
		WorkDir:     workDir,
		TimeoutMS:   s.cfg.TimeoutMS,
		Start:       start,
		Env:         ctx.Env,
		Logf: func(level hostcall.Level, message string) {
			logMu.Lock()
			logs = append(logs, LogEntry{Level: level, Message: message, Timestamp: time.Now().UTC()})
			logMu.Unlock()
			s.logGuestLine(level, message)
		},
	})

	store := wasmtime.NewStore(s.engine)
	store.Limiter(int64(s.cfg.MemoryLimit), -1, -1, -1, -1)
	if s.cfg.FuelLimit != nil {
		if err := store.AddFuel(*s.cfg.FuelLimit); err != nil {
			return ActionOutcome{}, errx.Wrap(ErrWasm, err)
		}
	}
	if s.cfg.TimeoutMS > 0 {
		store.SetEpochDeadline(uint64(time.Duration(s.cfg.TimeoutMS)*time.Millisecond/epochTick) + 1)
	}

	linker := wasmtime.NewLinker(s.engine)
	if err := linker.FuncWrap(HostModule, HostRequestImport, s.hostRequest(mediator)); err != nil {
		return ActionOutcome{}, errx.Wrap(ErrWasm, err)
	}

	instance, err := linker.Instantiate(store, module.inner)
	if err != nil {
		return ActionOutcome{}, errx.Wrap(ErrLoadFailed, err)
	}

	fn := instance.GetFunc(store, action)
	if fn == nil {
		return ActionOutcome{}, errx.With(ErrExecutionFailed, ": Action '%s' not found", action)
	}

	_, callErr := fn.Call(store)
	if callErr != nil {
		return ActionOutcome{Logs: logs}, s.classifyTrap(callErr, store, start)
	}

	return ActionOutcome{
		Success: true,
		Message: fmt.Sprintf("Action '%s' completed", action),
		Logs:    logs,
	}, nil
}

// classifyTrap maps a call failure onto the error surface: fuel
// exhaustion, deadline breach, or plain execution failure.
func (s *Sandbox) classifyTrap(callErr error, store *wasmtime.Store, start time.Time) error {
	var trap *wasmtime.Trap
	if errors.As(callErr, &trap) {
		if code := trap.Code(); code != nil {
			switch *code {
			case wasmtime.OutOfFuel:
				return errx.With(ErrResourceLimitExceeded, ": instruction limit exceeded")
			case wasmtime.Interrupt:
				return errx.With(ErrTimeout, ": plugin execution exceeded %dms", s.cfg.TimeoutMS)
			}
		}
	}

	// Older traps do not always carry a code; fall back on the budgets.
	if s.cfg.FuelLimit != nil {
		if consumed, enabled := store.FuelConsumed(); enabled && consumed >= *s.cfg.FuelLimit {
			return errx.With(ErrResourceLimitExceeded, ": instruction limit exceeded")
		}
	}
	if s.cfg.TimeoutMS > 0 && time.Since(start) >= time.Duration(s.cfg.TimeoutMS)*time.Millisecond {
		return errx.With(ErrTimeout, ": plugin execution exceeded %dms", s.cfg.TimeoutMS)
	}
	return errx.Wrap(ErrExecutionFailed, callErr)
}

// hostRequest builds the host.request import for one invocation. The guest
// passes (ptr, len) of a JSON request in its linear memory; the host
// mediates it and writes the JSON response into guest memory via the
// guest's exported allocator, returning ptr<<32|len, or 0 when the
// response cannot be delivered.
func (s *Sandbox) hostRequest(mediator *hostcall.Mediator) func(caller *wasmtime.Caller, ptr, length int32) int64 {
	return func(caller *wasmtime.Caller, ptr, length int32) int64 {
		resp := s.mediate(caller, mediator, ptr, length)

		raw, err := resp.Encode()
		if err != nil {
			return 0
		}
		return writeGuestResponse(caller, raw)
	}
}

// mediate decodes the request bytes out of guest memory and hands them to
// the mediator. Framing problems become error responses, never traps.
func (s *Sandbox) mediate(caller *wasmtime.Caller, mediator *hostcall.Mediator, ptr, length int32) hostcall.Response {
	raw, ok := readGuestMemory(caller, ptr, length)
	if !ok {
		return hostcall.Errorf("request out of guest memory bounds")
	}
	req, err := hostcall.DecodeRequest(raw)
	if err != nil {
		return hostcall.Errorf("malformed request: %v", err)
	}

	resp := mediator.Handle(req)
	if resp.Type == hostcall.ResponsePermissionDenied {
		s.logger.Warn("host call denied", "permission", resp.Permission)
	}
	return resp
}

// readGuestMemory copies [ptr, ptr+len) out of the caller's exported
// linear memory.
func readGuestMemory(caller *wasmtime.Caller, ptr, length int32) ([]byte, bool) {
	ext := caller.GetExport("memory")
	if ext == nil || ext.Memory() == nil {
		return nil, false
	}
	data := ext.Memory().UnsafeData(caller)
	if ptr < 0 || length < 0 || int64(ptr)+int64(length) > int64(len(data)) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, data[ptr:int64(ptr)+int64(length)])
	return out, true
}

// writeGuestResponse allocates a buffer in the guest via its exported
// allocator, copies raw into it, and returns the packed ptr/len pair.
func writeGuestResponse(caller *wasmtime.Caller, raw []byte) int64 {
	allocExt := caller.GetExport(GuestAllocExport)
	if allocExt == nil || allocExt.Func() == nil {
		return 0
	}
	ret, err := allocExt.Func().Call(caller, int32(len(raw)))
	if err != nil {
		return 0
	}
	ptr, ok := ret.(int32)
	if !ok || ptr < 0 {
		return 0
	}

	// Re-resolve memory: the allocation may have grown it.
	ext := caller.GetExport("memory")
	if ext == nil || ext.Memory() == nil {
		return 0
	}
	data := ext.Memory().UnsafeData(caller)
	if int64(ptr)+int64(len(raw)) > int64(len(data)) {
		return 0
	}
	copy(data[ptr:], raw)
	return int64(ptr)<<32 | int64(len(raw))
}

func (s *Sandbox) logGuestLine(level hostcall.Level, message string) {
	switch level {
	case hostcall.LevelDebug:
		s.logger.Debug(message, "source", "plugin")
	case hostcall.LevelWarn:
		s.logger.Warn(message, "source", "plugin")
	case hostcall.LevelError:
		s.logger.Error(message, "source", "plugin")
	default:
		s.logger.Info(message, "source", "plugin")
	}
}
