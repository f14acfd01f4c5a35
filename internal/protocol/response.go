package protocol

import (
	"fmt"
	"strconv"

	"firestige.xyz/spamprint/internal/core"
)

// CodeOK is the success status.
const CodeOK = 200

// Response is a parsed reply. Fields are parsed when read.
type Response struct {
	msg *Message
}

// ParseResponse parses a datagram. It does not check completeness.
func ParseResponse(data []byte) (*Response, error) {
	m, err := ParseMessage(data)
	if err != nil {
		return nil, err
	}
	return &Response{msg: m}, nil
}

// NewResponse wraps a message, mostly for servers and tests.
func NewResponse(m *Message) *Response { return &Response{msg: m} }

// EnsureComplete checks that Code, Diag and PV are present and Code is an
// integer.
func (r *Response) EnsureComplete() error {
	for _, name := range []string{FieldCode, FieldDiag, FieldPV} {
		if _, ok := r.msg.Get(name); !ok {
			return fmt.Errorf("%w: missing %s", core.ErrIncompleteMessage, name)
		}
	}
	if _, err := r.IntField(FieldCode); err != nil {
		return err
	}
	return nil
}

// Thread returns the echoed identifier. ok is false when the reply carries
// none.
func (r *Response) Thread() (ThreadID, bool, error) {
	v, ok := r.msg.Get(FieldThread)
	if !ok {
		return 0, false, nil
	}
	t, err := ParseThreadID(v)
	if err != nil {
		return 0, true, err
	}
	return t, true, nil
}

// Code returns the status code, or 0 when unreadable.
func (r *Response) Code() int {
	v, err := r.IntField(FieldCode)
	if err != nil {
		return 0
	}
	return int(v)
}

func (r *Response) Diag() string {
	v, _ := r.msg.Get(FieldDiag)
	return v
}

// IsOK reports a 200 status.
func (r *Response) IsOK() bool { return r.Code() == CodeOK }

// HeadTuple is the (code, diag) pair printed for every reply.
type HeadTuple struct {
	Code int    `json:"code" yaml:"code"`
	Diag string `json:"diag" yaml:"diag"`
}

func (h HeadTuple) String() string { return fmt.Sprintf("(%d, '%s')", h.Code, h.Diag) }

func (r *Response) HeadTuple() HeadTuple { return HeadTuple{Code: r.Code(), Diag: r.Diag()} }

// Field returns a raw header value.
func (r *Response) Field(name string) (string, bool) { return r.msg.Get(name) }

// IntField parses a header as a base 10 integer. A missing field wraps
// core.ErrFieldMissing.
func (r *Response) IntField(name string) (int64, error) {
	v, ok := r.msg.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrFieldMissing, name)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s is not an integer: %q", core.ErrMalformedMessage, name, v)
	}
	return n, nil
}

// Message returns the underlying header block.
func (r *Response) Message() *Message { return r.msg }

func (r *Response) String() string { return r.msg.String() }
