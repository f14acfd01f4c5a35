package protocol

import (
	"firestige.xyz/spamprint/internal/digest"
)

// ProtocolVersion is sent in the PV field of every request.
const ProtocolVersion = "2.0"

// Operation names.
const (
	OpPing      = "ping"
	OpInfo      = "info"
	OpReport    = "report"
	OpWhitelist = "whitelist"
	OpCheck     = "check"
	OpShutdown  = "shutdown"
)

// Header names.
const (
	FieldOp       = "Op"
	FieldDigest   = "Op-Digest"
	FieldSpec     = "Op-Spec"
	FieldThread   = "Thread"
	FieldPV       = "PV"
	FieldCode     = "Code"
	FieldDiag     = "Diag"
	FieldUser     = "User"
	FieldTime     = "Time"
	FieldSig      = "Sig"
	FieldCount    = "Count"
	FieldWLCount  = "WL-Count"
	FieldEntered  = "Entered"
	FieldUpdated  = "Updated"
	FieldWLEnter  = "WL-Entered"
	FieldWLUpdate = "WL-Updated"
)

// Request is an outgoing command.
type Request struct {
	op     string
	thread ThreadID
	digest string
	plan   digest.Plan
}

func NewPingRequest() *Request     { return newRequest(OpPing, "", nil) }
func NewShutdownRequest() *Request { return newRequest(OpShutdown, "", nil) }

func NewInfoRequest(fingerprint string) *Request {
	return newRequest(OpInfo, fingerprint, nil)
}

func NewCheckRequest(fingerprint string) *Request {
	return newRequest(OpCheck, fingerprint, nil)
}

func NewReportRequest(fingerprint string, plan digest.Plan) *Request {
	return newRequest(OpReport, fingerprint, plan)
}

func NewWhitelistRequest(fingerprint string, plan digest.Plan) *Request {
	return newRequest(OpWhitelist, fingerprint, plan)
}

func newRequest(op, fingerprint string, plan digest.Plan) *Request {
	return &Request{op: op, thread: NewThreadID(), digest: fingerprint, plan: plan}
}

func (r *Request) Op() string       { return r.op }
func (r *Request) Thread() ThreadID { return r.thread }
func (r *Request) Digest() string   { return r.digest }

// SetThread overrides the randomly chosen identifier.
func (r *Request) SetThread(t ThreadID) { r.thread = t }

// Message renders the request fields in wire order.
func (r *Request) Message() *Message {
	m := NewMessage()
	m.Set(FieldOp, r.op)
	if r.digest != "" {
		m.Set(FieldDigest, r.digest)
	}
	if len(r.plan) > 0 {
		m.Set(FieldSpec, r.plan.String())
	}
	m.Set(FieldThread, r.thread.String())
	m.Set(FieldPV, ProtocolVersion)
	return m
}
