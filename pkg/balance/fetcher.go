package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"evm-wallet/pkg/format"
	"evm-wallet/pkg/metrics"
	"evm-wallet/pkg/types"
)

// ErrInvalidAddress is returned for empty or malformed account addresses
var ErrInvalidAddress = errors.New("invalid account address")

// Provider queries native balances from the network.
// *ethclient.Client satisfies it.
type Provider interface {
	BalanceAt(ctx context.Context, account ecommon.Address, blockNumber *big.Int) (*big.Int, error)
}

// Fetcher keeps the displayed balance of the current account in sync with the network
type Fetcher struct {
	provider      Provider
	decimalPlaces int
	network       string
	logger        logrus.FieldLogger
	metrics       *metrics.Metrics

	mu      sync.RWMutex
	address string
	balance string
	loaded  bool
	err     error
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithDecimalPlaces sets the display precision
func WithDecimalPlaces(places int) Option {
	return func(f *Fetcher) { f.decimalPlaces = places }
}

// WithLogger sets the logger used to report failed queries
func WithLogger(logger logrus.FieldLogger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithMetrics records every query on m, labelled with network
func WithMetrics(m *metrics.Metrics, network string) Option {
	return func(f *Fetcher) {
		f.metrics = m
		f.network = network
	}
}

// NewFetcher creates a balance fetcher backed by provider
func NewFetcher(provider Provider, opts ...Option) *Fetcher {
	f := &Fetcher{
		provider:      provider,
		decimalPlaces: format.DefaultDecimalPlaces,
		logger:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load shows the balance of account, querying the network only when the
// address differs from the last one loaded.
func (f *Fetcher) Load(ctx context.Context, account types.Account) (string, error) {
	f.mu.Lock()
	if f.loaded && f.address == account.Address {
		balance, err := f.balance, f.err
		f.mu.Unlock()
		return balance, err
	}
	f.address = account.Address
	f.balance = account.Balance
	f.loaded = true
	f.err = nil
	f.mu.Unlock()

	return f.fetch(ctx, account.Address)
}

// Refresh re-queries the balance of the current address
func (f *Fetcher) Refresh(ctx context.Context) (string, error) {
	f.mu.RLock()
	address, loaded := f.address, f.loaded
	f.mu.RUnlock()

	if !loaded {
		return "", fmt.Errorf("%w: no account loaded", ErrInvalidAddress)
	}

	return f.fetch(ctx, address)
}

// Balance returns the displayed balance
func (f *Fetcher) Balance() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.balance
}

// Address returns the address whose balance is displayed
func (f *Fetcher) Address() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.address
}

// Err returns the error of the last query, if it failed
func (f *Fetcher) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

func (f *Fetcher) fetch(ctx context.Context, address string) (string, error) {
	formatted, err := f.query(ctx, address)
	f.metrics.ObserveBalanceFetch(f.network, err)

	f.mu.Lock()
	defer f.mu.Unlock()

	// The account changed while the query was in flight
	if f.address != address {
		return formatted, err
	}

	if err != nil {
		f.err = err
		f.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Warn("balance fetch failed, keeping last known balance")
		return f.balance, err
	}

	f.balance = formatted
	f.err = nil
	return formatted, nil
}

func (f *Fetcher) query(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if !ecommon.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	wei, err := f.provider.BalanceAt(ctx, ecommon.HexToAddress(address), nil)
	if err != nil {
		return "", fmt.Errorf("failed to get native balance: %w", err)
	}

	return format.DisplayBalance(wei, f.decimalPlaces)
}
