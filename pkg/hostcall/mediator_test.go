package hostcall

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-dev/waxwing/pkg/permission"
)

func decodeData[T any](t *testing.T, resp Response) T {
	t.Helper()
	require.Equal(t, ResponseSuccess, resp.Type, "message=%s permission=%s", resp.Message, resp.Permission)
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestReadFileHappyPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0o644))

	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.ReadPath(dir), permission.Time()),
	})

	resp := m.Handle(Request{Type: RequestReadFile, Path: file})
	data := decodeData[ReadFileData](t, resp)
	assert.Equal(t, []byte("hi"), data.Content)
	assert.Equal(t, 2, data.Size)

	// The wire form carries the content base64-encoded with the size as
	// the decoded byte count.
	raw, err := resp.Encode()
	require.NoError(t, err)
	var wire struct {
		Data struct {
			Content string `json:"content"`
			Size    int    `json:"size"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "aGk=", wire.Data.Content)
	assert.Equal(t, 2, wire.Data.Size)
}

func TestPathEscapeDeniedWithoutFilesystemProbe(t *testing.T) {
	dir := t.TempDir()
	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.ReadPath(filepath.Join(dir, "in"))),
	})

	resp := m.Handle(Request{Type: RequestReadFile, Path: dir + "/in/../etc/passwd"})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)
	assert.Equal(t, "read "+filepath.Join(dir, "etc", "passwd"), resp.Permission)
}

func TestDenialIsIdenticalForExistingAndMissingPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))
	missing := filepath.Join(dir, "absent.txt")

	m := NewMediator(MediatorConfig{Permissions: permission.NewSet()})

	respExisting := m.Handle(Request{Type: RequestReadFile, Path: existing})
	respMissing := m.Handle(Request{Type: RequestReadFile, Path: missing})

	assert.Equal(t, ResponsePermissionDenied, respExisting.Type)
	assert.Equal(t, ResponsePermissionDenied, respMissing.Type)
	assert.Equal(t, "read "+existing, respExisting.Permission)
	assert.Equal(t, "read "+missing, respMissing.Permission)
}

func TestWriteFileToNotYetExistingFileUnderGrant(t *testing.T) {
	dir := t.TempDir()
	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.WritePath(dir)),
	})

	target := filepath.Join(dir, "fresh.txt")
	resp := m.Handle(Request{Type: RequestWriteFile, Path: target, Content: []byte("data")})
	data := decodeData[WriteFileData](t, resp)
	assert.Equal(t, 4, data.BytesWritten)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	// Arbitrary nonexistent paths outside the grant stay denied.
	resp = m.Handle(Request{Type: RequestWriteFile, Path: "/nope/fresh.txt", Content: []byte("x")})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)
}

func TestWriteThenReadRoundTripsBytes(t *testing.T) {
	dir := t.TempDir()
	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.ReadPath(dir), permission.WritePath(dir)),
	})

	payload := []byte{0x00, 0x01, 0xfe, 0xff, 'a'}
	target := filepath.Join(dir, "blob.bin")

	resp := m.Handle(Request{Type: RequestWriteFile, Path: target, Content: payload})
	require.Equal(t, ResponseSuccess, resp.Type)

	resp = m.Handle(Request{Type: RequestReadFile, Path: target})
	data := decodeData[ReadFileData](t, resp)
	assert.Equal(t, payload, data.Content)
	assert.Equal(t, len(payload), data.Size)
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	m := NewMediator(MediatorConfig{Permissions: permission.NewSet(permission.ReadPath(dir))})

	resp := m.Handle(Request{Type: RequestListDir, Path: dir})
	data := decodeData[ListDirData](t, resp)
	require.Len(t, data.Entries, 2)
	names := map[string]bool{}
	for _, e := range data.Entries {
		names[e.Name] = e.IsDir
	}
	assert.False(t, names["f.txt"])
	assert.True(t, names["sub"])
}

func TestGetEnvRequiresGrant(t *testing.T) {
	t.Setenv("WAXWING_TEST_VAR", "42")

	// AllEnv covers any specific variable; files stay denied.
	m := NewMediator(MediatorConfig{Permissions: permission.NewSet(permission.AllEnv())})

	resp := m.Handle(Request{Type: RequestGetEnv, Name: "WAXWING_TEST_VAR"})
	data := decodeData[EnvData](t, resp)
	require.NotNil(t, data.Value)
	assert.Equal(t, "42", *data.Value)

	resp = m.Handle(Request{Type: RequestGetEnv, Name: "WAXWING_TEST_UNSET"})
	data = decodeData[EnvData](t, resp)
	assert.Nil(t, data.Value)

	resp = m.Handle(Request{Type: RequestReadFile, Path: "/anywhere"})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)

	// A named grant covers only itself.
	m = NewMediator(MediatorConfig{Permissions: permission.NewSet(permission.Env("WAXWING_TEST_VAR"))})
	resp = m.Handle(Request{Type: RequestGetEnv, Name: "WAXWING_TEST_VAR"})
	assert.Equal(t, ResponseSuccess, resp.Type)
	resp = m.Handle(Request{Type: RequestGetEnv, Name: "OTHER"})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)
}

func TestLogIsUnmediated(t *testing.T) {
	var gotLevel Level
	var gotMsg string
	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(), // empty set; log still works
		Logf: func(level Level, message string) {
			gotLevel, gotMsg = level, message
		},
	})

	resp := m.Handle(Request{Type: RequestLog, Level: LevelInfo, Message: "hello"})
	assert.Equal(t, ResponseSuccess, resp.Type)
	assert.Equal(t, LevelInfo, gotLevel)
	assert.Equal(t, "hello", gotMsg)
}

func TestEmptyPermissionSetDeniesTimeAndRandom(t *testing.T) {
	m := NewMediator(MediatorConfig{Permissions: permission.NewSet()})

	resp := m.Handle(Request{Type: RequestCurrentTime})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)
	assert.Equal(t, "current time", resp.Permission)

	resp = m.Handle(Request{Type: RequestGenerateUUID})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)
}

func TestCurrentTimeAndUUID(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.Time(), permission.Random()),
		Now:         func() time.Time { return fixed },
		Start:       fixed,
	})

	resp := m.Handle(Request{Type: RequestCurrentTime})
	data := decodeData[TimeData](t, resp)
	assert.Equal(t, fixed.Unix(), data.Timestamp)
	assert.Equal(t, "2025-06-01T12:00:00Z", data.ISO)

	resp = m.Handle(Request{Type: RequestGenerateUUID})
	uuidData := decodeData[UUIDData](t, resp)
	assert.Len(t, uuidData.UUID, 36)
}

func TestDeadlineCheckedBeforeWork(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.ReadPath(dir), permission.Time()),
		TimeoutMS:   50,
		Start:       start,
		Now:         func() time.Time { return now },
	})

	// t=10ms: inside the budget.
	now = start.Add(10 * time.Millisecond)
	resp := m.Handle(Request{Type: RequestCurrentTime})
	assert.Equal(t, ResponseSuccess, resp.Type)

	// t=60ms: past the deadline; every request kind fails, even log.
	now = start.Add(60 * time.Millisecond)
	resp = m.Handle(Request{Type: RequestCurrentTime})
	assert.Equal(t, ResponseError, resp.Type)
	assert.Contains(t, resp.Message, "timeout")

	resp = m.Handle(Request{Type: RequestReadFile, Path: file})
	assert.Equal(t, ResponseError, resp.Type)
	assert.Contains(t, resp.Message, "timeout")
}

func TestRelativePathsResolveAgainstWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rel.txt"), []byte("ok"), 0o644))

	m := NewMediator(MediatorConfig{
		Permissions: permission.NewSet(permission.ReadPath(dir)),
		WorkDir:     dir,
	})

	resp := m.Handle(Request{Type: RequestReadFile, Path: "rel.txt"})
	data := decodeData[ReadFileData](t, resp)
	assert.Equal(t, []byte("ok"), data.Content)

	// Relative traversal past the work dir escapes the grant and is denied.
	resp = m.Handle(Request{Type: RequestReadFile, Path: filepath.Join("..", "up.txt")})
	assert.Equal(t, ResponsePermissionDenied, resp.Type)
}
