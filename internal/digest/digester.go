// Package digest computes fuzzy message fingerprints: normalized lines,
// sampled from fixed positions in the message, fed through SHA-1.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"

	"firestige.xyz/spamprint/internal/core"
)

const (
	// MinLineLength is the shortest normalized line that contributes to a
	// fingerprint.
	MinLineLength = 8

	// AtomicNumLines is the largest message, in lines, that is digested whole
	// instead of sampled.
	AtomicNumLines = 4
)

type state int

const (
	stateFresh state = iota
	stateEmpty
	stateDone
)

// Digester accumulates one message into a fingerprint. It is single use.
type Digester struct {
	plan   Plan
	state  state
	atomic bool
	h      hash.Hash
	used   int
	value  string
}

func NewDigester(plan Plan) (*Digester, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &Digester{plan: plan}, nil
}

// Consume reads r to the end and computes its fingerprint. It returns false,
// with no error, when r is empty; such a message has no fingerprint.
func (d *Digester) Consume(r io.Reader) (bool, error) {
	if d.state != stateFresh {
		return false, core.ErrDigesterReused
	}

	ix, err := NewLineIndex(r)
	if err != nil {
		return false, err
	}
	defer ix.Close()

	n := ix.Lines()
	if n == 0 {
		d.state = stateEmpty
		return false, nil
	}

	d.h = sha1.New()
	d.atomic = n <= AtomicNumLines
	if d.atomic {
		err = d.digestAll(ix)
	} else {
		err = d.digestSampled(ix, n)
	}
	if err != nil {
		return false, err
	}

	d.value = hex.EncodeToString(d.h.Sum(nil))
	d.state = stateDone
	return true, nil
}

func (d *Digester) digestAll(ix *LineIndex) error {
	br, err := ix.ReadFrom(0)
	if err != nil {
		return err
	}
	for {
		line, ok, err := readLine(br)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		d.handleLine(line)
	}
}

func (d *Digester) digestSampled(ix *LineIndex, n int) error {
	for _, w := range d.plan {
		br, err := ix.ReadFrom(w.Percent * n / 100)
		if err != nil {
			return err
		}
		for taken := 0; taken < w.Lines; {
			line, ok, err := readLine(br)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if d.handleLine(line) {
				taken++
			}
		}
	}
	return nil
}

// handleLine hashes the normalized line if it is long enough and reports
// whether it did.
func (d *Digester) handleLine(line string) bool {
	norm := Normalize(line)
	if len(norm) < MinLineLength {
		return false
	}
	d.h.Write([]byte(norm))
	d.used++
	return true
}

// Digest returns the hex fingerprint.
func (d *Digester) Digest() (string, error) {
	if d.state != stateDone {
		return "", core.ErrDigestNotReady
	}
	return d.value, nil
}

// Atomic reports whether the whole message was digested.
func (d *Digester) Atomic() (bool, error) {
	if d.state != stateDone {
		return false, core.ErrDigestNotReady
	}
	return d.atomic, nil
}

// LinesUsed returns how many normalized lines went into the fingerprint.
func (d *Digester) LinesUsed() int { return d.used }

// Sum fingerprints r in one call. ok is false when r is empty.
func Sum(r io.Reader, plan Plan) (digest string, ok bool, err error) {
	d, err := NewDigester(plan)
	if err != nil {
		return "", false, err
	}
	if ok, err = d.Consume(r); !ok || err != nil {
		return "", false, err
	}
	digest, err = d.Digest()
	return digest, err == nil, err
}
