package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"evm-wallet/config"
)

var networksCmd = &cobra.Command{
	Use:     "networks",
	Aliases: []string{"ls"},
	Short:   "List configured networks",
	Long: `List the networks available to the wallet. Sepolia is built in; more can be
added under "networks" in .evm-wallet.yaml.

Examples:
  evm-wallet networks
  evm-wallet networks --json`,
	Args: cobra.NoArgs,
	Run:  runListNetworks,
}

func init() {
	rootCmd.AddCommand(networksCmd)
}

func runListNetworks(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	names := cfg.NetworkNames()

	if jsonOutput {
		networks := make([]map[string]interface{}, 0, len(names))
		for _, name := range names {
			network := cfg.Networks[name]
			networks = append(networks, map[string]interface{}{
				"name":               name,
				"chain_id":           network.ChainID,
				"rpc_url":            network.RPCUrl,
				"block_explorer_url": network.BlockExplorerURL,
				"symbol":             network.NativeSymbol(),
				"default":            name == cfg.Network,
			})
		}
		jsonData, _ := json.MarshalIndent(networks, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayNetworks(cfg, names)
}

func displayNetworks(cfg *config.Config, names []string) {
	if len(names) == 0 {
		fmt.Println("\nNo networks configured.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            CONFIGURED NETWORKS")
	fmt.Println(strings.Repeat("=", 90))

	for _, name := range names {
		network := cfg.Networks[name]

		marker := " "
		if name == cfg.Network {
			marker = "*"
		}

		rpcURL := network.RPCUrl
		// Truncate URL if too long
		if len(rpcURL) > 40 {
			rpcURL = rpcURL[:37] + "..."
		}

		fmt.Printf("%s %-12s  chain %-9d  %-5s  %-40s  %s\n",
			marker,
			color.YellowString(name),
			network.ChainID,
			network.NativeSymbol(),
			color.HiBlackString(rpcURL),
			network.BlockExplorerURL)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d networks (* = default)\n\n", len(names))
}
