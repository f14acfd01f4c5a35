package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/protocol"
	"firestige.xyz/spamprint/internal/runner"
)

var (
	reportMbox    bool
	whitelistMbox bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a message as spam",
	Long: `Report the message on standard input, or every message of an mbox archive
with --mbox, as spam to every server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, protocol.OpReport, reportMbox)
	},
}

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Whitelist a message",
	Long: `Whitelist the message on standard input, or every message of an mbox archive
with --mbox, on every server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, protocol.OpWhitelist, whitelistMbox)
	},
}

func submit(cmd *cobra.Command, op string, archive bool) error {
	s, err := newSession(cmd, true, true)
	if err != nil {
		return err
	}
	defer s.close()

	return succeed(runSubmit(cmd.Context(), s, op, archive))
}

// runSubmit sends every fingerprint to every server as a report or a
// whitelist request and returns true when all servers accepted all of them.
func runSubmit(ctx context.Context, s *session, op string, archive bool) (bool, error) {
	r := runner.New(s.textOut(), s.errOut)
	send := s.client.Report
	if op == protocol.OpWhitelist {
		send = s.client.Whitelist
	}

	var digests []string
	it := s.digests(archive)
	for it.Next() {
		res := it.Result()
		s.countDigest(res)
		digests = append(digests, res.Digest)
		for _, addr := range s.servers {
			r.Run(addr, res.Digest, func() (*protocol.Response, error) {
				return send(ctx, res.Digest, s.plan, addr)
			})
		}
	}
	if err := it.Err(); err != nil {
		return false, err
	}

	ok := r.Result()
	return ok, s.report(op, ok, digests, r.Outcomes())
}

func init() {
	reportCmd.Flags().BoolVar(&reportMbox, "mbox", false, "read an mbox archive instead of a single message")
	whitelistCmd.Flags().BoolVar(&whitelistMbox, "mbox", false, "read an mbox archive instead of a single message")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(whitelistCmd)
}
