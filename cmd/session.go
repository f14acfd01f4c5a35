package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/config"
	"firestige.xyz/spamprint/internal/core"
	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/extract"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/metrics"
	"firestige.xyz/spamprint/internal/runner"
	"firestige.xyz/spamprint/internal/servers"
)

// session carries what one command run needs.
type session struct {
	client   Client
	servers  []account.Address
	plan     digest.Plan
	charsets bool
	format   string
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	log      log.Logger
	metrics  *metrics.Metrics
}

// newSession builds a session from the loaded configuration. withServers
// loads (and if needed downloads) the server list, withClient opens a
// client.
func newSession(cmd *cobra.Command, withServers, withClient bool) (*session, error) {
	s := &session{
		plan:     app.cfg.Plan(),
		charsets: app.cfg.Client.DecodeCharsets,
		format:   app.cfg.Output.Format,
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		log:      app.logger,
		metrics:  app.metrics,
	}

	if withServers {
		list, err := loadServers(cmd.Context(), app.cfg, s.errOut, s.log)
		if err != nil {
			return nil, err
		}
		s.servers = list
	}

	if withClient {
		accounts, err := account.LoadAccountsFile(app.cfg.AccountsPath(), s.log)
		if err != nil {
			return nil, err
		}
		c, err := clientFactory(app.cfg, accounts, s.log, s.metrics)
		if err != nil {
			return nil, err
		}
		s.client = c
	}
	return s, nil
}

func (s *session) close() {
	if s.client != nil {
		s.client.Close()
	}
}

// textOut is where runners print: stdout for text output, nowhere when a
// structured report is written instead.
func (s *session) textOut() io.Writer {
	if s.format == runner.FormatText {
		return s.out
	}
	return io.Discard
}

func (s *session) digests(archive bool) *extract.Iterator {
	return extract.NewIterator(s.in, s.plan, archive, s.log, extract.WithCharsetDecoding(s.charsets))
}

func (s *session) countDigest(r extract.Result) {
	if s.metrics != nil {
		s.metrics.DigestsTotal.WithLabelValues(metrics.DigestMode(r.Atomic)).Inc()
	}
}

func (s *session) report(command string, success bool, digests []string, outcomes []runner.Outcome) error {
	return runner.WriteReport(s.out, s.format, runner.Report{
		Command:  command,
		Success:  success,
		Digests:  digests,
		Outcomes: outcomes,
	})
}

// loadServers reads the servers file, downloading it first when missing.
func loadServers(ctx context.Context, cfg *config.Config, errOut io.Writer, logger log.Logger) ([]account.Address, error) {
	path := cfg.ServersPath()
	if !servers.Exists(path) {
		if err := downloadServers(ctx, cfg, errOut); err != nil {
			return nil, err
		}
	}
	list, err := servers.Load(path, logger)
	if errors.Is(err, core.ErrNoServers) {
		return nil, fmt.Errorf("%w: maybe try the 'discover' command", err)
	}
	return list, err
}

func downloadServers(ctx context.Context, cfg *config.Config, errOut io.Writer) error {
	url := cfg.Client.DiscoverServersURL
	fmt.Fprintf(errOut, "downloading servers from %s\n", url)
	return servers.NewDownloader(cfg.Client.DownloadTimeout).Download(ctx, url, cfg.ServersPath())
}
