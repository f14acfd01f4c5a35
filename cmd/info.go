package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/protocol"
	"firestige.xyz/spamprint/internal/runner"
)

var infoMbox bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show what servers know about a message",
	Long: `Print the report and whitelist counts and their first and last update times
for the message on standard input, or every message of an mbox archive with --mbox,
as recorded by every server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, true, true)
		if err != nil {
			return err
		}
		defer s.close()

		return succeed(runInfo(cmd.Context(), s, infoMbox))
	},
}

func runInfo(ctx context.Context, s *session, archive bool) (bool, error) {
	r := runner.NewInfo(s.textOut(), s.errOut)

	var digests []string
	it := s.digests(archive)
	for it.Next() {
		res := it.Result()
		s.countDigest(res)
		digests = append(digests, res.Digest)
		for _, addr := range s.servers {
			r.Run(addr, res.Digest, func() (*protocol.Response, error) {
				return s.client.Info(ctx, res.Digest, addr)
			})
		}
	}
	if err := it.Err(); err != nil {
		return false, err
	}

	ok := r.Result()
	return ok, s.report("info", ok, digests, r.Outcomes())
}

func init() {
	infoCmd.Flags().BoolVar(&infoMbox, "mbox", false, "read an mbox archive instead of a single message")
	rootCmd.AddCommand(infoCmd)
}
