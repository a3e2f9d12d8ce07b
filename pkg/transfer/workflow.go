package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"evm-wallet/pkg/metrics"
	"evm-wallet/pkg/types"
)

// ErrTransferInFlight is returned by Submit while another attempt is outstanding
var ErrTransferInFlight = errors.New("a transfer is already pending")

const (
	completeText = "Transfer complete!"
	linkLabel    = "View transaction"
)

// Sender signs and submits a transfer, then waits for its receipt
type Sender interface {
	Send(ctx context.Context, req types.TransferRequest) (*types.TransferReceipt, error)
}

// Listener receives every state transition of the workflow
type Listener func(types.NetworkResponse)

// Workflow runs transfer attempts and exposes their state
type Workflow struct {
	sender      Sender
	explorerURL string
	network     string
	logger      logrus.FieldLogger
	metrics     *metrics.Metrics

	mu        sync.Mutex
	inFlight  bool
	state     types.NetworkResponse
	listeners map[int]Listener
	nextID    int
}

// Option configures a Workflow
type Option func(*Workflow)

// WithLogger sets the workflow logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithMetrics records settled attempts on m, labelled with network
func WithMetrics(m *metrics.Metrics, network string) Option {
	return func(w *Workflow) {
		w.metrics = m
		w.network = network
	}
}

// NewWorkflow creates an idle workflow submitting through sender.
// explorerURL is the block explorer base used to link confirmed transactions.
func NewWorkflow(sender Sender, explorerURL string, opts ...Option) *Workflow {
	w := &Workflow{
		sender:      sender,
		explorerURL: strings.TrimRight(explorerURL, "/"),
		logger:      logrus.StandardLogger(),
		listeners:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current response
func (w *Workflow) State() types.NetworkResponse {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Pending returns true while an attempt is outstanding
func (w *Workflow) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// Subscribe registers l for state transitions and returns a function that removes it
func (w *Workflow) Subscribe(l Listener) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.listeners[id] = l

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Submit runs one transfer attempt and returns its terminal response.
// Failures are reported through the error state; the returned error is only
// ErrTransferInFlight when another attempt has not settled yet.
func (w *Workflow) Submit(ctx context.Context, req types.TransferRequest) (types.NetworkResponse, error) {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return types.NetworkResponse{}, ErrTransferInFlight
	}
	w.inFlight = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inFlight = false
		w.mu.Unlock()
	}()

	l := w.logger.WithFields(logrus.Fields{
		"attempt": uuid.New().String(),
		"from":    req.SourceAddress,
		"to":      req.DestinationAddress,
		"amount":  req.Amount,
	})

	w.emit(types.NetworkResponse{Status: types.StatusPending})
	l.Info("transfer submitted")

	started := time.Now()
	receipt, err := w.sender.Send(ctx, req)

	var resp types.NetworkResponse
	switch {
	case err != nil:
		resp = types.NetworkResponse{Status: types.StatusError, Message: types.PlainText(failureMessage(err))}
		l.WithError(err).Error("transfer submission failed")
	case receipt == nil:
		resp = types.NetworkResponse{Status: types.StatusError, Message: types.PlainText("no receipt returned")}
		l.Error("transfer settled without a receipt")
	default:
		resp = Classify(receipt, w.explorerURL)
		l.WithFields(logrus.Fields{
			"txHash": receipt.TransactionHash,
			"status": receipt.Status,
		}).Info("transfer settled")
	}

	w.metrics.ObserveTransfer(w.network, string(resp.Status), time.Since(started))
	w.emit(resp)

	return resp, nil
}

// Classify turns a receipt into a terminal response: complete with a link on
// explorerURL when the chain executed the transfer, error with the receipt dump otherwise.
func Classify(receipt *types.TransferReceipt, explorerURL string) types.NetworkResponse {
	if receipt.Succeeded() {
		return types.NetworkResponse{
			Status:  types.StatusComplete,
			Message: types.LinkReference(completeText, TransactionURL(explorerURL, receipt.TransactionHash), linkLabel),
		}
	}
	return types.NetworkResponse{Status: types.StatusError, Message: types.PlainText(dumpReceipt(receipt))}
}

// TransactionURL links a transaction hash on the block explorer
func TransactionURL(explorerURL, hash string) string {
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(explorerURL, "/"), hash)
}

func (w *Workflow) emit(resp types.NetworkResponse) {
	w.mu.Lock()
	w.state = resp
	listeners := make([]Listener, 0, len(w.listeners))
	for i := 0; i < w.nextID; i++ {
		if l, ok := w.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	w.mu.Unlock()

	for _, l := range listeners {
		l(resp)
	}
}

// reasoner is implemented by submission errors that carry a human-readable reason
type reasoner interface {
	Reason() string
}

// failureMessage prefers the structured reason of err and falls back to a dump
func failureMessage(err error) string {
	var r reasoner
	if errors.As(err, &r) && r.Reason() != "" {
		return r.Reason()
	}
	return dumpError(err)
}

func dumpError(err error) string {
	if data, jerr := json.Marshal(err); jerr == nil && string(data) != "{}" && string(data) != "null" {
		return string(data)
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%#v", err)
}

func dumpReceipt(receipt *types.TransferReceipt) string {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Sprintf("%+v", *receipt)
	}
	return string(data)
}
