// Package extract turns a single message or an mbox archive into a lazy
// sequence of fingerprints.
package extract

import (
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-mbox"

	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/log"
)

// Result is one computed fingerprint.
type Result struct {
	Digest    string
	Atomic    bool
	LinesUsed int
}

// Iterator yields one Result per message that has a fingerprint. It is
// finite and cannot be restarted.
//
//	it := extract.NewIterator(os.Stdin, digest.DefaultPlan, false, logger)
//	for it.Next() {
//		use(it.Result())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	plan           digest.Plan
	log            log.Logger
	decodeCharsets bool
	source         func() (io.Reader, bool, error)
	cur            Result
	err            error
	done           bool
}

// Option configures an Iterator.
type Option func(*Iterator)

// WithCharsetDecoding converts archived text parts in a declared non UTF-8
// charset to UTF-8 before digesting. Off by default: fingerprints shared
// with other clients are computed over the transfer-decoded bytes.
func WithCharsetDecoding(enabled bool) Option {
	return func(it *Iterator) { it.decodeCharsets = enabled }
}

// NewIterator reads r as one message, or as an mbox archive when archive is
// set.
func NewIterator(r io.Reader, plan digest.Plan, archive bool, logger log.Logger, opts ...Option) *Iterator {
	if logger == nil {
		logger = log.GetLogger()
	}
	it := &Iterator{plan: plan, log: logger}
	for _, opt := range opts {
		opt(it)
	}
	if archive {
		it.source = archiveSource(r, it.decodeCharsets, logger)
	} else {
		it.source = singleSource(r)
	}
	return it
}

// singleSource yields the body of r once.
func singleSource(r io.Reader) func() (io.Reader, bool, error) {
	used := false
	return func() (io.Reader, bool, error) {
		if used {
			return nil, false, nil
		}
		used = true
		return skipHeaders(r), true, nil
	}
}

// archiveSource yields the decoded text of each message of an mbox stream.
func archiveSource(r io.Reader, decodeCharsets bool, logger log.Logger) func() (io.Reader, bool, error) {
	mr := mbox.NewReader(r)
	return func() (io.Reader, bool, error) {
		msg, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to read mailbox: %w", err)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read mailbox message: %w", err)
		}
		return messageBody(raw, decodeCharsets, logger), true, nil
	}
}

// Next advances to the next message with a fingerprint.
func (it *Iterator) Next() bool {
	for !it.done {
		payload, ok, err := it.source()
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		if !ok {
			it.done = true
			return false
		}

		res, ok, err := it.digest(payload)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		if !ok {
			continue
		}
		it.log.Debugf("calculated digest: %s", res.Digest)
		it.cur = res
		return true
	}
	return false
}

func (it *Iterator) digest(payload io.Reader) (Result, bool, error) {
	d, err := digest.NewDigester(it.plan)
	if err != nil {
		return Result{}, false, err
	}
	ok, err := d.Consume(payload)
	if err != nil || !ok {
		return Result{}, false, err
	}
	value, err := d.Digest()
	if err != nil {
		return Result{}, false, err
	}
	atomic, err := d.Atomic()
	if err != nil {
		return Result{}, false, err
	}
	return Result{Digest: value, Atomic: atomic, LinesUsed: d.LinesUsed()}, true, nil
}

// Result returns the fingerprint produced by the last successful Next.
func (it *Iterator) Result() Result { return it.cur }

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }
