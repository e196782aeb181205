// Package hostcall defines the request/response protocol spoken between a
// sandboxed guest and the host, and the mediator that enforces the
// permission contract on every call. Payloads travel as JSON with a "type"
// discriminator; byte payloads are standard base64 with padding.
package hostcall

import (
	"encoding/json"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/permission"
)

// RequestType discriminates host-call request variants.
type RequestType string

const (
	RequestReadFile     RequestType = "read_file"
	RequestWriteFile    RequestType = "write_file"
	RequestListDir      RequestType = "list_dir"
	RequestGetEnv       RequestType = "get_env"
	RequestLog          RequestType = "log"
	RequestCurrentTime  RequestType = "current_time"
	RequestGenerateUUID RequestType = "generate_uuid"
)

// Level is a guest log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Request is a single host call issued by a guest. Fields beyond Type are
// populated per variant: Path for read_file/write_file/list_dir, Content for
// write_file, Name for get_env, Level and Message for log.
type Request struct {
	Type    RequestType `json:"type"`
	Path    string      `json:"path,omitempty"`
	Content []byte      `json:"content,omitempty"`
	Name    string      `json:"name,omitempty"`
	Level   Level       `json:"level,omitempty"`
	Message string      `json:"message,omitempty"`
}

// DecodeRequest parses a request from its wire form.
func DecodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, errx.Wrap(ErrDecodeRequest, err)
	}
	switch req.Type {
	case RequestReadFile, RequestWriteFile, RequestListDir,
		RequestGetEnv, RequestLog, RequestCurrentTime, RequestGenerateUUID:
		return req, nil
	}
	return Request{}, errx.With(ErrDecodeRequest, ": unknown request type %q", req.Type)
}

// Encode renders the request in its wire form.
func (r Request) Encode() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, errx.Wrap(ErrEncodeRequest, err)
	}
	return raw, nil
}

// Required returns the permission a request must be covered by. The second
// return is false for requests that are unmediated (log).
func Required(r Request) (permission.Permission, bool) {
	switch r.Type {
	case RequestReadFile, RequestListDir:
		return permission.ReadPath(r.Path), true
	case RequestWriteFile:
		return permission.WritePath(r.Path), true
	case RequestGetEnv:
		return permission.Env(r.Name), true
	case RequestCurrentTime:
		return permission.Time(), true
	case RequestGenerateUUID:
		return permission.Random(), true
	}
	return permission.Permission{}, false
}
