package account

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"firestige.xyz/spamprint/internal/core"
)

// Address identifies a server. It is comparable and used as a map key.
type Address struct {
	Host string
	Port int
}

// ParseAddress parses "host:port".
func ParseAddress(s string) (Address, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", core.ErrInvalidAddress, s, err)
	}
	return NewAddress(host, port)
}

// NewAddress validates host and a decimal port.
func NewAddress(host, port string) (Address, error) {
	if host == "" {
		return Address{}, fmt.Errorf("%w: empty host", core.ErrInvalidAddress)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return Address{}, fmt.Errorf("%w: invalid port %q", core.ErrInvalidAddress, port)
	}
	return Address{Host: host, Port: p}, nil
}

// String returns "host:port".
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}
