// Package runner sends one command to every server in turn and folds the
// replies into printed lines and an overall verdict.
package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/protocol"
)

// Call performs one request against one server.
type Call func() (*protocol.Response, error)

// Outcome records what one server answered.
type Outcome struct {
	Server  string            `json:"server" yaml:"server"`
	Digest  string            `json:"digest,omitempty" yaml:"digest,omitempty"`
	Code    int               `json:"code,omitempty" yaml:"code,omitempty"`
	Diag    string            `json:"diag,omitempty" yaml:"diag,omitempty"`
	Count   *int64            `json:"count,omitempty" yaml:"count,omitempty"`
	WLCount *int64            `json:"wl_count,omitempty" yaml:"wl_count,omitempty"`
	Times   map[string]string `json:"times,omitempty" yaml:"times,omitempty"`
	Error   string            `json:"error,omitempty" yaml:"error,omitempty"`
}

type handler func(r *Runner, resp *protocol.Response, prefix string, o *Outcome) error

// Runner aggregates replies. A failing server never stops the others.
type Runner struct {
	out    io.Writer
	errOut io.Writer
	loc    *time.Location
	handle handler
	check  bool

	AllOK       bool
	FoundHit    bool
	Whitelisted bool

	outcomes []Outcome
}

// Option configures a Runner.
type Option func(*Runner)

// WithLocation sets the zone info timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(r *Runner) { r.loc = loc }
}

func newRunner(out, errOut io.Writer, h handler, opts []Option) *Runner {
	r := &Runner{out: out, errOut: errOut, loc: time.Local, handle: h, AllOK: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// New returns the runner for ping, shutdown, report and whitelist: it prints
// the status of each reply and succeeds when every reply is ok.
func New(out, errOut io.Writer, opts ...Option) *Runner {
	return newRunner(out, errOut, handleDefault, opts)
}

// NewCheck returns the runner for check.
func NewCheck(out, errOut io.Writer, opts ...Option) *Runner {
	r := newRunner(out, errOut, handleCheck, opts)
	r.check = true
	return r
}

// NewInfo returns the runner for info.
func NewInfo(out, errOut io.Writer, opts ...Option) *Runner {
	return newRunner(out, errOut, handleInfo, opts)
}

// Run invokes call once for addr. Errors from the call or from reading the
// reply become a "host:port\t<error>" line on the error stream.
func (r *Runner) Run(addr account.Address, fingerprint string, call Call) {
	o := Outcome{Server: addr.String(), Digest: fingerprint}
	prefix := addr.String() + "\t"

	err := r.run(call, prefix, &o)
	if err != nil {
		o.Error = err.Error()
		fmt.Fprintf(r.errOut, "%s%v\n", prefix, err)
		r.AllOK = false
	}
	r.outcomes = append(r.outcomes, o)
}

func (r *Runner) run(call Call, prefix string, o *Outcome) error {
	resp, err := call()
	if err != nil {
		return err
	}
	head := resp.HeadTuple()
	o.Code, o.Diag = head.Code, head.Diag
	return r.handle(r, resp, prefix, o)
}

// Result is the verdict of the command. For check it is "some server
// reported a hit and none whitelisted", otherwise AllOK.
func (r *Runner) Result() bool {
	if r.check {
		return r.FoundHit && !r.Whitelisted
	}
	return r.AllOK
}

// Outcomes returns one record per Run in call order.
func (r *Runner) Outcomes() []Outcome { return r.outcomes }

func handleDefault(r *Runner, resp *protocol.Response, prefix string, _ *Outcome) error {
	if !resp.IsOK() {
		r.AllOK = false
	}
	fmt.Fprintf(r.out, "%s%s\n", prefix, resp.HeadTuple())
	return nil
}

func handleCheck(r *Runner, resp *protocol.Response, prefix string, o *Outcome) error {
	prefix += resp.HeadTuple().String() + "\t"
	if !resp.IsOK() {
		r.AllOK = false
		fmt.Fprintln(r.errOut, strings.TrimSuffix(prefix, "\t"))
		return nil
	}

	wlCount, err := resp.IntField(protocol.FieldWLCount)
	if err != nil {
		return err
	}
	var count int64
	if wlCount > 0 {
		r.Whitelisted = true
	} else {
		count, err = resp.IntField(protocol.FieldCount)
		if err != nil {
			return err
		}
		if count > 0 {
			r.FoundHit = true
		}
	}
	o.Count, o.WLCount = &count, &wlCount
	fmt.Fprintf(r.out, "%s%d\t%d\n", prefix, count, wlCount)
	return nil
}

var infoTimeFields = []string{
	protocol.FieldEntered,
	protocol.FieldUpdated,
	protocol.FieldWLEnter,
	protocol.FieldWLUpdate,
}

func isWhitelistField(name string) bool {
	return strings.HasPrefix(name, "WL-")
}

// FormatTimestamp renders a Unix time in ctime layout, or "Never" for -1.
func FormatTimestamp(v int64, loc *time.Location) string {
	if v == -1 {
		return "Never"
	}
	return time.Unix(v, 0).In(loc).Format(time.ANSIC)
}

func handleInfo(r *Runner, resp *protocol.Response, prefix string, o *Outcome) error {
	var b strings.Builder
	b.WriteString(prefix + resp.HeadTuple().String() + "\n")
	if !resp.IsOK() {
		r.AllOK = false
		io.WriteString(r.errOut, b.String())
		return nil
	}

	count, err := resp.IntField(protocol.FieldCount)
	if err != nil {
		return err
	}
	o.Count = &count
	fmt.Fprintf(&b, "\tCount: %d\n", count)

	if count > 0 {
		wlShown := false
		for _, name := range infoTimeFields {
			if _, ok := resp.Field(name); !ok {
				continue
			}
			v, err := resp.IntField(name)
			if err != nil {
				return err
			}
			if isWhitelistField(name) && !wlShown {
				wlCount, err := resp.IntField(protocol.FieldWLCount)
				if err != nil {
					return err
				}
				o.WLCount = &wlCount
				fmt.Fprintf(&b, "\tWhiteList Count: %d\n", wlCount)
				wlShown = true
			}
			stamp := FormatTimestamp(v, r.loc)
			if o.Times == nil {
				o.Times = make(map[string]string)
			}
			o.Times[name] = stamp
			fmt.Fprintf(&b, "\t%s: %s\n", name, stamp)
		}
	}
	io.WriteString(r.out, b.String())
	return nil
}
