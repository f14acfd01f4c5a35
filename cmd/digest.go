package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/runner"
)

var digestMbox bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print message fingerprints without contacting servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, false, false)
		if err != nil {
			return err
		}
		return runDigest(s, digestMbox)
	},
}

func runDigest(s *session, archive bool) error {
	var digests []string
	it := s.digests(archive)
	for it.Next() {
		res := it.Result()
		s.countDigest(res)
		digests = append(digests, res.Digest)
		fmt.Fprintln(s.textOut(), res.Digest)
	}
	if err := it.Err(); err != nil {
		return err
	}
	if s.format == runner.FormatText {
		return nil
	}
	return s.report("digest", true, digests, nil)
}

func init() {
	digestCmd.Flags().BoolVar(&digestMbox, "mbox", false, "read an mbox archive instead of a single message")
	rootCmd.AddCommand(digestCmd)
}
