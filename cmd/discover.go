package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/spamprint/internal/config"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/servers"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Download the public server list",
	Long: `Fetch the server list from client.discover_servers_url into the servers file,
replacing the current one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiscover(cmd.Context(), app.cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), app.logger)
	},
}

func runDiscover(ctx context.Context, cfg *config.Config, out, errOut io.Writer, logger log.Logger) error {
	if err := downloadServers(ctx, cfg, errOut); err != nil {
		return err
	}
	list, err := servers.Load(cfg.ServersPath(), logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d servers available\n", len(list))
	return nil
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
