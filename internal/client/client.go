// Package client sends signed requests to servers and correlates their
// replies.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/core"
	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/metrics"
	"firestige.xyz/spamprint/internal/protocol"
	"firestige.xyz/spamprint/internal/transport"
)

// DefaultTimeout bounds the wait for each reply.
const DefaultTimeout = 5 * time.Second

// Client is not safe for concurrent use: each call owns the socket and its
// read deadline until it returns.
type Client struct {
	transport transport.Transport
	accounts  account.Accounts
	timeout   time.Duration
	maxPacket int
	log       log.Logger
	metrics   *metrics.Metrics
	cache     *cache.Cache
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per call reply deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxPacketSize sets the receive buffer size.
func WithMaxPacketSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPacket = n
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCache keeps successful check and info replies for ttl, keyed by
// operation, server and fingerprint. A zero ttl disables it.
func WithCache(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithClock overrides the clock used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New builds a client on t. The client owns t and closes it in Close.
func New(t transport.Transport, accounts account.Accounts, opts ...Option) *Client {
	c := &Client{
		transport: t,
		accounts:  accounts,
		timeout:   DefaultTimeout,
		maxPacket: transport.MaxPacketSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.GetLogger()
	}
	return c
}

// Dial opens a UDP socket and builds a client on it.
func Dial(accounts account.Accounts, opts ...Option) (*Client, error) {
	t, err := transport.NewUDP()
	if err != nil {
		return nil, err
	}
	return New(t, accounts, opts...), nil
}

func (c *Client) Close() error { return c.transport.Close() }

func (c *Client) Ping(ctx context.Context, addr account.Address) (*protocol.Response, error) {
	return c.call(ctx, protocol.NewPingRequest(), addr)
}

func (c *Client) Info(ctx context.Context, fingerprint string, addr account.Address) (*protocol.Response, error) {
	return c.call(ctx, protocol.NewInfoRequest(fingerprint), addr)
}

func (c *Client) Report(ctx context.Context, fingerprint string, plan digest.Plan, addr account.Address) (*protocol.Response, error) {
	return c.call(ctx, protocol.NewReportRequest(fingerprint, plan), addr)
}

func (c *Client) Whitelist(ctx context.Context, fingerprint string, plan digest.Plan, addr account.Address) (*protocol.Response, error) {
	return c.call(ctx, protocol.NewWhitelistRequest(fingerprint, plan), addr)
}

func (c *Client) Check(ctx context.Context, fingerprint string, addr account.Address) (*protocol.Response, error) {
	return c.call(ctx, protocol.NewCheckRequest(fingerprint), addr)
}

func (c *Client) Shutdown(ctx context.Context, addr account.Address) (*protocol.Response, error) {
	return c.call(ctx, protocol.NewShutdownRequest(), addr)
}

func cacheable(op string) bool {
	return op == protocol.OpCheck || op == protocol.OpInfo
}

func cacheKey(req *protocol.Request, addr account.Address) string {
	return req.Op() + "|" + addr.String() + "|" + req.Digest()
}

func (c *Client) call(ctx context.Context, req *protocol.Request, addr account.Address) (*protocol.Response, error) {
	useCache := c.cache != nil && cacheable(req.Op())
	if useCache {
		if v, ok := c.cache.Get(cacheKey(req, addr)); ok {
			c.log.Debugf("cached reply for %s %s", req.Op(), addr)
			if c.metrics != nil {
				c.metrics.CacheHitsTotal.WithLabelValues(req.Op()).Inc()
			}
			return v.(*protocol.Response), nil
		}
	}

	start := time.Now()
	resp, err := c.exchange(ctx, req, addr)
	c.observe(req.Op(), addr, start, err)
	if err != nil {
		return nil, err
	}

	if useCache && resp.IsOK() {
		c.cache.SetDefault(cacheKey(req, addr), resp)
	}
	return resp, nil
}

func (c *Client) exchange(ctx context.Context, req *protocol.Request, addr account.Address) (*protocol.Response, error) {
	acc := c.accounts.Lookup(addr)
	payload := protocol.Wrap(acc, req.Message(), c.now())

	c.log.Debugf("sending to %s: %q", addr, payload)
	if err := c.transport.Send(payload, addr); err != nil {
		return nil, err
	}
	return c.readResponse(ctx, req.Thread())
}

// deadline is the configured timeout, tightened by the context deadline.
func (c *Client) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

func (c *Client) readResponse(ctx context.Context, expect protocol.ThreadID) (*protocol.Response, error) {
	buf := make([]byte, c.maxPacket)
	n, from, err := c.transport.Receive(c.deadline(ctx), buf)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("received from %v: %q", from, buf[:n])

	resp, err := protocol.ParseResponse(buf[:n])
	if err != nil {
		return nil, err
	}
	if err := resp.EnsureComplete(); err != nil {
		return nil, err
	}

	thread, ok, err := resp.Thread()
	if err != nil {
		return nil, err
	}
	if !ok {
		c.log.Warn("no thread id received")
		return resp, nil
	}
	if thread != expect {
		if thread.InOKRange() {
			return nil, fmt.Errorf("%w: received unexpected thread id %d (expected %d)", core.ErrProtocol, thread, expect)
		}
		c.log.Warnf("received error thread id %d (expected %d)", thread, expect)
	}
	return resp, nil
}

func (c *Client) observe(op string, addr account.Address, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, core.ErrTimeout):
		result = metrics.ResultTimeout
	case errors.Is(err, core.ErrProtocol):
		result = metrics.ResultProtocol
	default:
		result = metrics.ResultFailure
	}
	c.metrics.RequestsTotal.WithLabelValues(op, addr.String(), result).Inc()
	c.metrics.RequestDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
