package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"evm-wallet/config"
	"evm-wallet/pkg/format"
	wtypes "evm-wallet/pkg/types"
)

const nativeTransferGas = uint64(21000) // Standard ETH transfer

// Client is the subset of the node API used to send native transfers.
// *ethclient.Client satisfies it.
type Client interface {
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
}

// SubmitError is a failed submission step with the node's human-readable reason
type SubmitError struct {
	Op  string
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Reason returns the message reported by the node or the signer
func (e *SubmitError) Reason() string {
	var rpcErr rpc.Error
	if errors.As(e.Err, &rpcErr) {
		return rpcErr.Error()
	}
	return e.Err.Error()
}

// EVMSender signs native transfers and waits for them to be mined
type EVMSender struct {
	network config.Network
	client  Client
	logger  logrus.FieldLogger
}

// Dial connects to the network's RPC endpoint
func Dial(ctx context.Context, network config.Network) (*ethclient.Client, error) {
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", network.Name)
	}

	client, err := ethclient.DialContext(ctx, network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	return client, nil
}

// NewEVMSender creates a sender for network backed by client
func NewEVMSender(network config.Network, client Client, logger logrus.FieldLogger) *EVMSender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EVMSender{
		network: network,
		client:  client,
		logger:  logger.WithField("network", network.Name),
	}
}

// Send signs and broadcasts req, then blocks until the transaction is mined
func (e *EVMSender) Send(ctx context.Context, req wtypes.TransferRequest) (*wtypes.TransferReceipt, error) {
	tx, err := e.buildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := e.client.SendTransaction(ctx, tx); err != nil {
		return nil, &SubmitError{Op: "send transaction", Err: err}
	}

	e.logger.WithField("txHash", tx.Hash().Hex()).Debug("transaction broadcast, waiting to be mined")

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return nil, &SubmitError{Op: "wait for receipt", Err: err}
	}

	return toReceipt(receipt), nil
}

// Receipt looks up the receipt of a mined transaction.
// The boolean is false while the transaction is still pending.
func (e *EVMSender) Receipt(ctx context.Context, txHash string) (*wtypes.TransferReceipt, bool, error) {
	hash := common.HexToHash(txHash)

	_, isPending, err := e.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transaction: %w", err)
	}
	if isPending {
		return nil, false, nil
	}

	receipt, err := e.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	return toReceipt(receipt), true, nil
}

func (e *EVMSender) buildTransaction(ctx context.Context, req wtypes.TransferRequest) (*types.Transaction, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(req.SigningCredential, "0x"))
	if err != nil {
		return nil, &SubmitError{Op: "load signing key", Err: errors.New("invalid private key")}
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, &SubmitError{Op: "load signing key", Err: errors.New("failed to get public key")}
	}
	fromAddress := crypto.PubkeyToAddress(*publicKeyECDSA)

	if !strings.EqualFold(fromAddress.Hex(), req.SourceAddress) {
		return nil, &SubmitError{
			Op:  "load signing key",
			Err: fmt.Errorf("signing key controls %s, not %s", fromAddress.Hex(), req.SourceAddress),
		}
	}

	if !common.IsHexAddress(req.DestinationAddress) {
		return nil, &SubmitError{Op: "build transaction", Err: fmt.Errorf("invalid recipient address: %s", req.DestinationAddress)}
	}
	toAddress := common.HexToAddress(req.DestinationAddress)

	amountWei, err := format.ToWei(req.Amount)
	if err != nil {
		return nil, &SubmitError{Op: "build transaction", Err: err}
	}

	nonce, err := e.client.PendingNonceAt(ctx, fromAddress)
	if err != nil {
		return nil, &SubmitError{Op: "get nonce", Err: err}
	}

	gasPrice, err := e.gasPrice(ctx)
	if err != nil {
		return nil, &SubmitError{Op: "get gas price", Err: err}
	}

	gasLimit := nativeTransferGas
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	}

	tx := types.NewTransaction(nonce, toAddress, amountWei, gasLimit, gasPrice, nil)

	chainID := big.NewInt(e.network.ChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privateKey)
	if err != nil {
		return nil, &SubmitError{Op: "sign transaction", Err: err}
	}

	return signedTx, nil
}

// gasPrice returns the configured gas price, or the node's suggestion
func (e *EVMSender) gasPrice(ctx context.Context) (*big.Int, error) {
	if e.network.GasPrice != nil {
		return big.NewInt(*e.network.GasPrice), nil
	}
	return e.client.SuggestGasPrice(ctx)
}

func toReceipt(receipt *types.Receipt) *wtypes.TransferReceipt {
	return &wtypes.TransferReceipt{
		Status:          receipt.Status,
		TransactionHash: receipt.TxHash.Hex(),
	}
}
