package hostcall

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/waxwing-dev/waxwing/pkg/permission"
)

// MediatorConfig configures one per-invocation mediator.
type MediatorConfig struct {
	// Permissions is the active grant set. It must not be mutated while
	// the mediator is live.
	Permissions permission.Set

	// WorkDir resolves relative request paths. When empty, relative paths
	// are made absolute against the host process's working directory by
	// canonicalisation, both for the coverage check and for the syscall.
	WorkDir string

	// TimeoutMS and Start define the wall-clock deadline. Every call
	// checks the deadline before doing any work.
	TimeoutMS uint64
	Start     time.Time

	// Env provides invocation-scoped variables consulted before the
	// process environment. The permission check applies either way.
	Env map[string]string

	// Logf receives guest log lines. Nil discards them.
	Logf func(level Level, message string)

	// Now overrides the clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// Mediator validates and executes host calls for a single invocation.
// It owns no state beyond its configuration and is driven synchronously:
// the guest blocks in the host import until Handle returns.
type Mediator struct {
	cfg MediatorConfig
}

// NewMediator builds a mediator for one invocation.
func NewMediator(cfg MediatorConfig) *Mediator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Start.IsZero() {
		cfg.Start = cfg.Now()
	}
	return &Mediator{cfg: cfg}
}

// Handle mediates one request. The permission check happens before any
// filesystem probe, so a denial cannot confirm whether a path exists; the
// check and the operation it authorises evaluate the same canonicalised
// path value.
func (m *Mediator) Handle(req Request) Response {
	if err := m.checkDeadline(); err != nil {
		return Errorf("%v", err)
	}

	switch req.Type {
	case RequestReadFile:
		return m.readFile(req.Path)
	case RequestWriteFile:
		return m.writeFile(req.Path, req.Content)
	case RequestListDir:
		return m.listDir(req.Path)
	case RequestGetEnv:
		return m.getEnv(req.Name)
	case RequestLog:
		if m.cfg.Logf != nil {
			m.cfg.Logf(req.Level, req.Message)
		}
		return Success()
	case RequestCurrentTime:
		return m.currentTime()
	case RequestGenerateUUID:
		return m.generateUUID()
	}
	return Errorf("unknown request type %q", req.Type)
}

// checkDeadline returns a timeout error once the wall-clock budget is
// spent. A timed-out invocation can produce no further side effects.
func (m *Mediator) checkDeadline() error {
	if m.cfg.TimeoutMS == 0 {
		return nil
	}
	elapsed := m.cfg.Now().Sub(m.cfg.Start)
	if elapsed > time.Duration(m.cfg.TimeoutMS)*time.Millisecond {
		return fmt.Errorf("timeout: plugin execution exceeded %dms", m.cfg.TimeoutMS)
	}
	return nil
}

// resolve joins a relative request path onto the working directory and
// cleans it. The returned string is the value both the permission check and
// the syscall operate on.
func (m *Mediator) resolve(path string) string {
	if !filepath.IsAbs(path) && m.cfg.WorkDir != "" {
		path = filepath.Join(m.cfg.WorkDir, path)
	}
	return filepath.Clean(path)
}

func (m *Mediator) readFile(path string) Response {
	p := m.resolve(path)
	want := permission.ReadPath(p)
	if !m.cfg.Permissions.Contains(want) {
		return Denied(want.Describe())
	}

	content, err := os.ReadFile(permission.Canonicalize(p))
	if err != nil {
		return Errorf("failed to read file: %v", err)
	}
	return SuccessWith(ReadFileData{Content: content, Size: len(content)})
}

func (m *Mediator) writeFile(path string, content []byte) Response {
	p := m.resolve(path)
	want := permission.WritePath(p)
	if !m.cfg.Permissions.Contains(want) {
		return Denied(want.Describe())
	}

	if err := os.WriteFile(permission.Canonicalize(p), content, 0o644); err != nil {
		return Errorf("failed to write file: %v", err)
	}
	return SuccessWith(WriteFileData{BytesWritten: len(content)})
}

func (m *Mediator) listDir(path string) Response {
	p := m.resolve(path)
	want := permission.ReadPath(p)
	if !m.cfg.Permissions.Contains(want) {
		return Denied(want.Describe())
	}

	entries, err := os.ReadDir(permission.Canonicalize(p))
	if err != nil {
		return Errorf("failed to list directory: %v", err)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return SuccessWith(ListDirData{Entries: out})
}

func (m *Mediator) getEnv(name string) Response {
	want := permission.Env(name)
	if !m.cfg.Permissions.Contains(want) {
		return Denied(want.Describe())
	}

	if value, ok := m.cfg.Env[name]; ok {
		return SuccessWith(EnvData{Value: &value})
	}
	if value, ok := os.LookupEnv(name); ok {
		return SuccessWith(EnvData{Value: &value})
	}
	return SuccessWith(EnvData{Value: nil})
}

func (m *Mediator) currentTime() Response {
	want := permission.Time()
	if !m.cfg.Permissions.Contains(want) {
		return Denied(want.Describe())
	}
	now := m.cfg.Now().UTC()
	return SuccessWith(TimeData{Timestamp: now.Unix(), ISO: now.Format(time.RFC3339)})
}

func (m *Mediator) generateUUID() Response {
	want := permission.Random()
	if !m.cfg.Permissions.Contains(want) {
		return Denied(want.Describe())
	}
	return SuccessWith(UUIDData{UUID: uuid.NewString()})
}
