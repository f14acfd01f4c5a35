package protocol

import (
	"fmt"
	"math/rand"
	"strconv"

	"firestige.xyz/spamprint/internal/core"
)

// ThreadID correlates a reply with its request. Values from OKRangeStart up
// are chosen by clients; the values below it, including ErrorThread, are
// reserved for server error replies.
type ThreadID uint16

const (
	ErrorThread  ThreadID = 0
	OKRangeStart ThreadID = 1024
)

// NewThreadID picks a random identifier in the ok range.
func NewThreadID() ThreadID {
	return OKRangeStart + ThreadID(rand.Intn(1<<16-int(OKRangeStart)))
}

// InOKRange reports whether t could have been chosen by a client.
func (t ThreadID) InOKRange() bool { return t >= OKRangeStart }

func (t ThreadID) String() string { return strconv.Itoa(int(t)) }

// ParseThreadID parses a decimal identifier.
func ParseThreadID(s string) (ThreadID, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid thread %q", core.ErrMalformedMessage, s)
	}
	return ThreadID(v), nil
}
