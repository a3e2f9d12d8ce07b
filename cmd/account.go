package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"evm-wallet/pkg/balance"
	"evm-wallet/pkg/metrics"
)

var (
	watchBalance    bool
	balanceInterval int
	metricsAddr     string
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Aliases: []string{"balance"},
	Short:   "Show the account address and balance",
	Long: `Show the configured account address, its block explorer link and its native balance.

Examples:
  evm-wallet account
  evm-wallet account --network holesky
  evm-wallet account --watch --interval 15 --metrics-addr :9101`,
	Args: cobra.NoArgs,
	Run:  runAccount,
}

func init() {
	rootCmd.AddCommand(accountCmd)

	accountCmd.Flags().BoolVarP(&watchBalance, "watch", "w", false, "Refresh the balance continuously")
	accountCmd.Flags().IntVar(&balanceInterval, "interval", 15, "Refresh interval in seconds (when watching)")
	accountCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (when watching)")
}

func runAccount(cmd *cobra.Command, args []string) {
	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := s.cfg.RequireAccount(); err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := s.dial(ctx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New()
	fetcher := s.newFetcher(client, m)

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !s.json {
		sp.Suffix = " Fetching balance..."
		sp.Start()
	}

	_, err = fetcher.Load(ctx, s.account())
	if !s.json {
		sp.Stop()
	}

	if s.json {
		output := map[string]interface{}{
			"network": s.network.Name,
			"address": s.cfg.Address,
			"balance": fetcher.Balance(),
			"symbol":  s.network.NativeSymbol(),
			"url":     s.network.AddressURL(s.cfg.Address),
		}
		if err != nil {
			output["error"] = err.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayAccount(s, fetcher)

	if watchBalance {
		if metricsAddr != "" {
			go serveMetrics(m)
		}
		watchAccountBalance(ctx, s, fetcher)
	}
}

func watchAccountBalance(ctx context.Context, s *session, fetcher *balance.Fetcher) {
	fmt.Printf("Refreshing every %d seconds. Press Ctrl+C to stop.\n\n", balanceInterval)

	ticker := time.NewTicker(time.Duration(balanceInterval) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := fetcher.Refresh(ctx); err != nil {
			color.Yellow("[%s] Balance unavailable (%v), showing last known: %s %s",
				time.Now().Format("15:04:05"), err, fetcher.Balance(), s.network.NativeSymbol())
			continue
		}
		fmt.Printf("[%s] Balance: %s %s\n",
			time.Now().Format("15:04:05"), color.GreenString(fetcher.Balance()), s.network.NativeSymbol())
	}
}

func serveMetrics(m *metrics.Metrics) {
	server := &http.Server{
		Addr:              metricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		color.Red("Metrics server stopped: %v", err)
	}
}

func displayAccount(s *session, fetcher *balance.Fetcher) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          ACCOUNT")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Network:  %s (chain %d)\n", s.network.Name, s.network.ChainID)
	fmt.Printf("  Address:  %s\n", color.CyanString(fetcher.Address()))
	fmt.Printf("  Explorer: %s\n", color.HiBlackString(s.network.AddressURL(fetcher.Address())))

	if err := fetcher.Err(); err != nil {
		fmt.Printf("  Balance:  %s %s\n", fallbackBalance(fetcher.Balance()), s.network.NativeSymbol())
		color.Yellow("  Balance unavailable: %v", err)
	} else {
		fmt.Printf("  Balance:  %s %s\n", color.GreenString(fetcher.Balance()), s.network.NativeSymbol())
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func fallbackBalance(b string) string {
	if b == "" {
		return "?"
	}
	return b
}
