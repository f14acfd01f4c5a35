package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/protocol"
	"firestige.xyz/spamprint/internal/runner"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping every server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, true, true)
		if err != nil {
			return err
		}
		defer s.close()
		return succeed(runPing(cmd.Context(), s, s.servers))
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown <host:port>...",
	Short: "Ask servers to shut down",
	Long: `Send a shutdown request to each server named on the command line. Servers
only honour it from privileged accounts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addrs := make([]account.Address, 0, len(args))
		for _, arg := range args {
			addr, err := account.ParseAddress(arg)
			if err != nil {
				return err
			}
			addrs = append(addrs, addr)
		}

		s, err := newSession(cmd, false, true)
		if err != nil {
			return err
		}
		defer s.close()
		return succeed(runShutdown(cmd.Context(), s, addrs))
	},
}

func succeed(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnsuccessful
	}
	return nil
}

// runPing returns true when every server answered with an ok status.
func runPing(ctx context.Context, s *session, addrs []account.Address) (bool, error) {
	return runEach(ctx, s, protocol.OpPing, addrs, s.client.Ping)
}

func runShutdown(ctx context.Context, s *session, addrs []account.Address) (bool, error) {
	return runEach(ctx, s, protocol.OpShutdown, addrs, s.client.Shutdown)
}

func runEach(ctx context.Context, s *session, op string, addrs []account.Address,
	call func(context.Context, account.Address) (*protocol.Response, error)) (bool, error) {
	if len(addrs) == 0 {
		return false, fmt.Errorf("no servers to %s", op)
	}
	r := runner.New(s.textOut(), s.errOut)
	for _, addr := range addrs {
		r.Run(addr, "", func() (*protocol.Response, error) {
			return call(ctx, addr)
		})
	}
	ok := r.Result()
	return ok, s.report(op, ok, nil, r.Outcomes())
}

func init() {
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(shutdownCmd)
}
