package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"evm-wallet/config"
	"evm-wallet/pkg/balance"
	"evm-wallet/pkg/chain"
	"evm-wallet/pkg/metrics"
	"evm-wallet/pkg/types"
)

var rootCmd = &cobra.Command{
	Use:   "evm-wallet",
	Short: "A single-account wallet for EVM networks",
	Long: `evm-wallet shows the address and native balance of one account and sends
native token transfers from it, reporting progress until the transfer is mined.

Examples:
  evm-wallet account
  evm-wallet send 0.01 ETH to 0x2222222222222222222222222222222222222222
  evm-wallet receipt 0x5c50...2060 --watch
  evm-wallet networks`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (defaults to the configured network)")
}

// session bundles what every command needs to talk to a network
type session struct {
	cfg     *config.Config
	network config.Network
	logger  *logrus.Logger
	verbose bool
	json    bool
}

func newSession(cmd *cobra.Command) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	networkName, _ := cmd.Flags().GetString("network")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	network, err := cfg.SelectNetwork(networkName)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return &session{
		cfg:     cfg,
		network: network,
		logger:  logger,
		verbose: verbose,
		json:    jsonOutput,
	}, nil
}

func (s *session) dial(ctx context.Context) (*ethclient.Client, error) {
	return chain.Dial(ctx, s.network)
}

func (s *session) account() types.Account {
	return types.Account{Address: s.cfg.Address, PrivateKey: s.cfg.PrivateKey}
}

func (s *session) newFetcher(client balance.Provider, m *metrics.Metrics) *balance.Fetcher {
	return balance.NewFetcher(client,
		balance.WithDecimalPlaces(s.cfg.DecimalPlaces),
		balance.WithLogger(s.logger),
		balance.WithMetrics(m, s.network.Name),
	)
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
