package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"evm-wallet/pkg/chain"
	"evm-wallet/pkg/transfer"
	"evm-wallet/pkg/types"
)

var (
	watchReceipt    bool
	receiptInterval int
)

var receiptCmd = &cobra.Command{
	Use:   "receipt <tx-hash>",
	Short: "Check the outcome of a transfer",
	Long: `Look up the receipt of a transaction and report whether the chain executed it.

Examples:
  evm-wallet receipt 0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060
  evm-wallet receipt 0x5c50...2060 --watch
  evm-wallet receipt 0x5c50...2060 --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runReceipt,
}

func init() {
	rootCmd.AddCommand(receiptCmd)

	receiptCmd.Flags().BoolVarP(&watchReceipt, "watch", "w", false, "Poll until the transaction is mined")
	receiptCmd.Flags().IntVar(&receiptInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runReceipt(cmd *cobra.Command, args []string) {
	txHash := args[0]

	s, err := newSession(cmd)
	if err != nil {
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

	sender := chain.NewEVMSender(s.network, client, s.logger)
	explorerURL := s.network.BlockExplorerURL

	if watchReceipt {
		if s.json {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			os.Exit(1)
		}
		watchTransferReceipt(ctx, sender, explorerURL, txHash)
		return
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !s.json {
		sp.Suffix = " Looking up receipt..."
		sp.Start()
	}

	resp, err := lookupReceipt(ctx, sender, explorerURL, txHash)
	if !s.json {
		sp.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if s.json {
		jsonData, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayReceipt(resp, txHash)
	}
}

func lookupReceipt(ctx context.Context, sender *chain.EVMSender, explorerURL, txHash string) (types.NetworkResponse, error) {
	receipt, mined, err := sender.Receipt(ctx, txHash)
	if err != nil {
		return types.NetworkResponse{}, err
	}
	if !mined {
		return types.NetworkResponse{Status: types.StatusPending}, nil
	}
	return transfer.Classify(receipt, explorerURL), nil
}

func watchTransferReceipt(ctx context.Context, sender *chain.EVMSender, explorerURL, txHash string) {
	fmt.Printf("\nWatching transaction %s\n", color.CyanString(txHash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", receiptInterval)

	ticker := time.NewTicker(time.Duration(receiptInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first, then periodically until mined
	for {
		resp, err := lookupReceipt(ctx, sender, explorerURL, txHash)
		if err != nil {
			color.Red("Error: %v", err)
		} else if resp.Status.IsTerminal() {
			displayReceipt(resp, txHash)
			return
		}

		<-ticker.C
	}
}

func displayReceipt(resp types.NetworkResponse, txHash string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        TRANSFER STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction: %s\n", color.CyanString(txHash))
	fmt.Printf("  Status:      %s\n", getColoredStatus(resp.Status))

	switch {
	case resp.Message.IsLink():
		fmt.Printf("  %s: %s\n", resp.Message.Label, color.HiBlackString(resp.Message.URL))
	case resp.Message.Text != "":
		fmt.Printf("  Receipt:     %s\n", resp.Message.Text)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status types.Status) string {
	label := strings.ToUpper(status.String())

	switch status {
	case types.StatusComplete:
		return color.GreenString(label)
	case types.StatusPending:
		return color.YellowString(label)
	case types.StatusError:
		return color.RedString(label)
	default:
		return label
	}
}
