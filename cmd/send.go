package cmd

import (
	"bufio"
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
	"evm-wallet/pkg/metrics"
	"evm-wallet/pkg/parser"
	"evm-wallet/pkg/transfer"
	"evm-wallet/pkg/types"
)

var noConfirm bool

var sendCmd = &cobra.Command{
	Use:   "send <amount> [symbol] to <address>",
	Short: "Send native tokens to another address",
	Long: `Send a native token transfer from the configured account and wait until it is mined.

IMPORTANT:
  - The destination address is not checked beyond its format; double check it
  - The transfer cannot be cancelled once submitted

Examples:
  evm-wallet send 0.01 ETH to 0x2222222222222222222222222222222222222222
  evm-wallet send 0.5 to 0x2222222222222222222222222222222222222222 --network holesky --yes`,
	Args: cobra.MinimumNArgs(3),
	Run:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSend(cmd *cobra.Command, args []string) {
	// Parse the command
	sendReq, err := parser.ParseSendCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := sendReq.CheckSymbol(s.network.NativeSymbol()); err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := s.cfg.RequireSigner(); err != nil {
		printError(err)
		os.Exit(1)
	}

	account := s.account()
	req, err := types.NewTransferRequest(sendReq.Amount, account.Address, sendReq.Destination, account.PrivateKey)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !s.json {
		displayTransfer(s, req)
	}

	// Ask for confirmation
	if !noConfirm && !s.json {
		if !confirmSend() {
			fmt.Println("\nTransfer cancelled.")
			os.Exit(0)
		}
	}

	ctx := context.Background()
	client, err := s.dial(ctx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New()
	workflow := transfer.NewWorkflow(
		chain.NewEVMSender(s.network, client, s.logger),
		s.network.BlockExplorerURL,
		transfer.WithLogger(s.logger),
		transfer.WithMetrics(m, s.network.Name),
	)

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Transfer is pending..."
	if !s.json {
		workflow.Subscribe(func(resp types.NetworkResponse) {
			switch resp.Status {
			case types.StatusPending:
				sp.Start()
			case types.StatusComplete, types.StatusError:
				sp.Stop()
			}
		})
	}

	resp, err := workflow.Submit(ctx, *req)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if s.json {
		jsonData, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayResponse(resp)
	}

	if resp.Status != types.StatusComplete {
		os.Exit(1)
	}

	if !s.json {
		fetcher := s.newFetcher(client, m)
		if balance, err := fetcher.Load(ctx, account); err == nil {
			fmt.Printf("New balance: %s %s\n\n", color.GreenString(balance), s.network.NativeSymbol())
		}
	}
}

func displayTransfer(s *session, req *types.TransferRequest) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          TRANSFER")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Network: %s (chain %d)\n", s.network.Name, s.network.ChainID)
	fmt.Printf("  From:    %s\n", color.CyanString(req.SourceAddress))
	fmt.Printf("  To:      %s\n", color.CyanString(req.DestinationAddress))
	fmt.Printf("  Amount:  %s %s\n", req.Amount, color.YellowString(s.network.NativeSymbol()))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func displayResponse(resp types.NetworkResponse) {
	switch resp.Status {
	case types.StatusComplete:
		color.Green("\n✓ %s", resp.Message.Text)
		if resp.Message.IsLink() {
			fmt.Printf("  %s: %s\n\n", resp.Message.Label, color.CyanString(resp.Message.URL))
		}
	case types.StatusError:
		color.Red("\n✗ Error occurred while transferring tokens: %s\n", resp.Message.String())
	case types.StatusPending:
		color.Yellow("\nTransfer is pending...\n")
	}
}

func confirmSend() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with transfer? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
