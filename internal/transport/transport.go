// Package transport moves datagrams between the client and servers.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/core"
)

// MaxPacketSize is the largest datagram the client accepts.
const MaxPacketSize = 8192

// Transport sends one payload per call and waits for a single datagram.
type Transport interface {
	Send(payload []byte, addr account.Address) error
	// Receive blocks until a datagram arrives or deadline passes. The
	// deadline never outlives the call.
	Receive(deadline time.Time, buf []byte) (int, net.Addr, error)
	Close() error
}

// UDP is a Transport on one unconnected UDP socket.
type UDP struct {
	conn *net.UDPConn
}

// NewUDP opens a socket on an ephemeral local port.
func NewUDP() (*UDP, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open udp socket: %w", err)
	}
	return &UDP{conn: conn}, nil
}

func (u *UDP) Send(payload []byte, addr account.Address) error {
	dst, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	if _, err := u.conn.WriteToUDP(payload, dst); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}
	return nil
}

func (u *UDP) Receive(deadline time.Time, buf []byte) (int, net.Addr, error) {
	if err := u.conn.SetReadDeadline(deadline); err != nil {
		return 0, nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	defer u.conn.SetReadDeadline(time.Time{})

	n, from, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, fmt.Errorf("%w: no reply before %s", core.ErrTimeout, deadline.Format(time.RFC3339))
		}
		return 0, nil, fmt.Errorf("failed to receive: %w", err)
	}
	return n, from, nil
}

// LocalAddr is the bound socket address.
func (u *UDP) LocalAddr() net.Addr { return u.conn.LocalAddr() }

func (u *UDP) Close() error { return u.conn.Close() }

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
