package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"evm-wallet/pkg/format"
)

// ErrInvalidAmount is returned when a transfer amount is not a plain decimal worth at least 1 wei
var ErrInvalidAmount = errors.New("amount must be a positive decimal")

// Account is the wallet account shown by the view
type Account struct {
	Address    string
	PrivateKey string
	Balance    string
}

// TransferRequest represents a single transfer attempt
type TransferRequest struct {
	Amount             string
	SourceAddress      string
	DestinationAddress string
	SigningCredential  string
}

// NewTransferRequest builds a transfer request after checking the amount is a positive decimal
func NewTransferRequest(amount, sourceAddress, destinationAddress, credential string) (*TransferRequest, error) {
	amount = strings.TrimSpace(amount)
	if _, err := ParseAmount(amount); err != nil {
		return nil, err
	}

	return &TransferRequest{
		Amount:             amount,
		SourceAddress:      sourceAddress,
		DestinationAddress: destinationAddress,
		SigningCredential:  credential,
	}, nil
}

// ParseAmount parses a positive decimal amount in display units.
// Amounts that would be sent as zero wei are rejected.
func ParseAmount(amount string) (*big.Rat, error) {
	value, err := format.ParseDecimal(amount)
	if err != nil || value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	if _, err := format.ToWei(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	return value, nil
}

// TransferReceipt is the network's confirmation record for a submitted transfer
type TransferReceipt struct {
	Status          uint64 `json:"status"`
	TransactionHash string `json:"transactionHash"`
}

// ReceiptStatusSuccessful is the receipt status of a transfer the chain accepted and executed
const ReceiptStatusSuccessful uint64 = 1

// Succeeded returns true if the chain executed the transfer
func (r *TransferReceipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}
