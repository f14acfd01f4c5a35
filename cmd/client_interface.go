package cmd

import (
	"context"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/client"
	"firestige.xyz/spamprint/internal/config"
	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/metrics"
	"firestige.xyz/spamprint/internal/protocol"
)

// Client is the server API the commands use.
type Client interface {
	Ping(ctx context.Context, addr account.Address) (*protocol.Response, error)
	Info(ctx context.Context, fingerprint string, addr account.Address) (*protocol.Response, error)
	Report(ctx context.Context, fingerprint string, plan digest.Plan, addr account.Address) (*protocol.Response, error)
	Whitelist(ctx context.Context, fingerprint string, plan digest.Plan, addr account.Address) (*protocol.Response, error)
	Check(ctx context.Context, fingerprint string, addr account.Address) (*protocol.Response, error)
	Shutdown(ctx context.Context, addr account.Address) (*protocol.Response, error)
	Close() error
}

// ClientFactory builds the Client for one command run.
type ClientFactory func(cfg *config.Config, accounts account.Accounts, logger log.Logger, m *metrics.Metrics) (Client, error)

var clientFactory ClientFactory = dialClient

func dialClient(cfg *config.Config, accounts account.Accounts, logger log.Logger, m *metrics.Metrics) (Client, error) {
	return client.Dial(accounts,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithMaxPacketSize(cfg.Client.MaxPacketSize),
		client.WithCache(cfg.Client.CacheTTL),
		client.WithLogger(logger),
		client.WithMetrics(m),
	)
}

// SetClientFactory replaces how clients are built and returns the previous
// factory.
func SetClientFactory(f ClientFactory) ClientFactory {
	prev := clientFactory
	clientFactory = f
	return prev
}
