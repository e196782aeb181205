package hostcall

import "errors"

var (
	ErrDecodeRequest  = errors.New("decode host request")
	ErrEncodeRequest  = errors.New("encode host request")
	ErrDecodeResponse = errors.New("decode host response")
	ErrEncodeResponse = errors.New("encode host response")
)
