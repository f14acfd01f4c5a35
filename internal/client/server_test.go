package client

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/protocol"
)

// replyFunc builds the reply datagram for a verified request; nil means stay
// silent.
type replyFunc func(req *protocol.Message) []byte

type fakeServer struct {
	conn  *net.UDPConn
	addr  account.Address
	users map[string]account.Account

	mu       sync.Mutex
	reply    replyFunc
	requests []*protocol.Message
	rejected int
}

func newFakeServer(t *testing.T, reply replyFunc, users ...account.Account) *fakeServer {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	s := &fakeServer{
		conn:  conn,
		addr:  account.Address{Host: "127.0.0.1", Port: conn.LocalAddr().(*net.UDPAddr).Port},
		users: map[string]account.Account{account.AnonymousUser: account.Anonymous()},
		reply: reply,
	}
	for _, u := range users {
		s.users[u.Username()] = u
	}
	t.Cleanup(func() { conn.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) lookup(user string) (account.Account, bool) {
	acc, ok := s.users[user]
	return acc, ok
}

func (s *fakeServer) serve() {
	buf := make([]byte, 8192)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		msg, err := protocol.Unwrap(buf[:n], s.lookup, time.Now())

		s.mu.Lock()
		if err != nil {
			s.rejected++
			s.mu.Unlock()
			s.conn.WriteToUDP([]byte("Code: 401\nDiag: Unauthorized\nPV: 2.0\n\n"), from)
			continue
		}
		s.requests = append(s.requests, msg)
		reply := s.reply
		s.mu.Unlock()

		if out := reply(msg); out != nil {
			s.conn.WriteToUDP(out, from)
		}
	}
}

func (s *fakeServer) setReply(r replyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = r
}

func (s *fakeServer) received() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Message, len(s.requests))
	copy(out, s.requests)
	return out
}

// ok answers 200 with the request thread echoed and extra fields appended.
func ok(extra ...string) replyFunc {
	return func(req *protocol.Message) []byte {
		m := protocol.NewMessage()
		m.Set("Code", "200")
		m.Set("Diag", "OK")
		m.Set("PV", "2.0")
		if th, found := req.Get("Thread"); found {
			m.Set("Thread", th)
		}
		for i := 0; i+1 < len(extra); i += 2 {
			m.Set(extra[i], extra[i+1])
		}
		return m.Bytes()
	}
}

func withThread(thread string) replyFunc {
	return func(*protocol.Message) []byte {
		return []byte("Code: 200\nDiag: OK\nPV: 2.0\nThread: " + thread + "\n\n")
	}
}

func raw(data string) replyFunc {
	return func(*protocol.Message) []byte { return []byte(data) }
}

func silent(*protocol.Message) []byte { return nil }
