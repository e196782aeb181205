package hostcall

import (
	"encoding/json"
	"fmt"

	"github.com/waxwing-dev/waxwing/internal/errx"
)

// ResponseType discriminates host-call response variants.
type ResponseType string

const (
	ResponseSuccess          ResponseType = "success"
	ResponseError            ResponseType = "error"
	ResponsePermissionDenied ResponseType = "permission_denied"
)

// Response is the host's answer to one request. Error and PermissionDenied
// are distinct so guests can classify failures: a denial is an ordinary,
// recoverable result and never aborts the invocation.
type Response struct {
	Type ResponseType `json:"type"`

	// Data carries the variant-specific success payload, if any.
	Data json.RawMessage `json:"data,omitempty"`

	// Message is set for error responses.
	Message string `json:"message,omitempty"`

	// Permission is the human description of the denied permission.
	Permission string `json:"permission,omitempty"`
}

// ReadFileData is the success payload of read_file. Size is the decoded
// byte count, not the base64 length.
type ReadFileData struct {
	Content []byte `json:"content"`
	Size    int    `json:"size"`
}

// WriteFileData is the success payload of write_file.
type WriteFileData struct {
	BytesWritten int `json:"bytes_written"`
}

// DirEntry is one entry of a list_dir payload.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// ListDirData is the success payload of list_dir.
type ListDirData struct {
	Entries []DirEntry `json:"entries"`
}

// EnvData is the success payload of get_env. Value is null when the
// variable is unset.
type EnvData struct {
	Value *string `json:"value"`
}

// TimeData is the success payload of current_time.
type TimeData struct {
	Timestamp int64  `json:"timestamp"`
	ISO       string `json:"iso"`
}

// UUIDData is the success payload of generate_uuid.
type UUIDData struct {
	UUID string `json:"uuid"`
}

// Success builds a success response without data.
func Success() Response {
	return Response{Type: ResponseSuccess}
}

// SuccessWith builds a success response carrying data. Marshal failures
// degrade to an error response so the guest always receives valid wire
// bytes.
func SuccessWith(data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Errorf("encode response data: %v", err)
	}
	return Response{Type: ResponseSuccess, Data: raw}
}

// Errorf builds an error response.
func Errorf(format string, args ...any) Response {
	return Response{Type: ResponseError, Message: fmt.Sprintf(format, args...)}
}

// Denied builds a permission_denied response for the given description.
func Denied(permission string) Response {
	return Response{Type: ResponsePermissionDenied, Permission: permission}
}

// DecodeResponse parses a response from its wire form.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, errx.Wrap(ErrDecodeResponse, err)
	}
	switch resp.Type {
	case ResponseSuccess, ResponseError, ResponsePermissionDenied:
		return resp, nil
	}
	return Response{}, errx.With(ErrDecodeResponse, ": unknown response type %q", resp.Type)
}

// Encode renders the response in its wire form.
func (r Response) Encode() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, errx.Wrap(ErrEncodeResponse, err)
	}
	return raw, nil
}
