package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/logger"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/node"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// DefaultListenAddr is the default address of the node
const DefaultListenAddr = "127.0.0.1:8545"

func newNodeCmd(_ *state) *cobra.Command {
	var (
		listen   string
		accounts int
		seed     string
	)

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Serve a simulated chain over HTTP",
		Long: `Serve a simulated chain that provision runs in other processes can reach with
--node-url. The node stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := node.New(transport.NewSimulated(transport.WithAccounts(accounts), transport.WithSeed(seed)))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(listen) }()
			logger.InfoWithFields("node listening", map[string]interface{}{
				"addr":     listen,
				"accounts": accounts,
			})

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down node")
				return srv.Shutdown()
			}
		},
	}

	cmd.Flags().StringVarP(&listen, flagListen, "l", DefaultListenAddr, "Address to listen on")
	cmd.Flags().IntVar(&accounts, flagAccounts, transport.DefaultAccounts, "Number of pre-funded accounts")
	cmd.Flags().StringVar(&seed, flagSeed, "testenv", "Seed the accounts are derived from")

	return cmd
}
