package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/protocol"
	"firestige.xyz/spamprint/internal/runner"
)

var checkMbox bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a message is known spam",
	Long: `Check the fingerprint of the message on standard input, or of every message
of an mbox archive with --mbox, against every server.

Each server prints "host:port\t(code, diag)\tcount\twhitelist-count". The exit
status is 0 when some server reports the message and none has it whitelisted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, true, true)
		if err != nil {
			return err
		}
		defer s.close()

		return succeed(runCheck(cmd.Context(), s, checkMbox))
	},
}

// runCheck returns true when some server reported a hit and none reported
// the fingerprint as whitelisted.
func runCheck(ctx context.Context, s *session, archive bool) (bool, error) {
	r := runner.NewCheck(s.textOut(), s.errOut)

	var digests []string
	it := s.digests(archive)
	for it.Next() {
		res := it.Result()
		s.countDigest(res)
		digests = append(digests, res.Digest)
		for _, addr := range s.servers {
			r.Run(addr, res.Digest, func() (*protocol.Response, error) {
				return s.client.Check(ctx, res.Digest, addr)
			})
		}
	}
	if err := it.Err(); err != nil {
		return false, err
	}

	hit := r.Result()
	return hit, s.report("check", hit, digests, r.Outcomes())
}

func init() {
	checkCmd.Flags().BoolVar(&checkMbox, "mbox", false, "read an mbox archive instead of a single message")
	rootCmd.AddCommand(checkCmd)
}
