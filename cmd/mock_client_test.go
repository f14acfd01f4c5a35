package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/protocol"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) resp(args mock.Arguments) (*protocol.Response, error) {
	r, _ := args.Get(0).(*protocol.Response)
	return r, args.Error(1)
}

func (m *MockClient) Ping(ctx context.Context, addr account.Address) (*protocol.Response, error) {
	return m.resp(m.Called(ctx, addr))
}

func (m *MockClient) Info(ctx context.Context, fingerprint string, addr account.Address) (*protocol.Response, error) {
	return m.resp(m.Called(ctx, fingerprint, addr))
}

func (m *MockClient) Report(ctx context.Context, fingerprint string, plan digest.Plan, addr account.Address) (*protocol.Response, error) {
	return m.resp(m.Called(ctx, fingerprint, plan, addr))
}

func (m *MockClient) Whitelist(ctx context.Context, fingerprint string, plan digest.Plan, addr account.Address) (*protocol.Response, error) {
	return m.resp(m.Called(ctx, fingerprint, plan, addr))
}

func (m *MockClient) Check(ctx context.Context, fingerprint string, addr account.Address) (*protocol.Response, error) {
	return m.resp(m.Called(ctx, fingerprint, addr))
}

func (m *MockClient) Shutdown(ctx context.Context, addr account.Address) (*protocol.Response, error) {
	return m.resp(m.Called(ctx, addr))
}

func (m *MockClient) Close() error {
	return m.Called().Error(0)
}

// reply builds a server response with the given code, diag and extra
// name/value pairs.
func reply(code, diag string, fields ...string) *protocol.Response {
	msg := protocol.NewMessage()
	msg.Set(protocol.FieldCode, code)
	msg.Set(protocol.FieldDiag, diag)
	msg.Set(protocol.FieldPV, protocol.ProtocolVersion)
	for i := 0; i+1 < len(fields); i += 2 {
		msg.Set(fields[i], fields[i+1])
	}
	return protocol.NewResponse(msg)
}
