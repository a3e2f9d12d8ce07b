package transfer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-wallet/pkg/metrics"
	"evm-wallet/pkg/types"
)

const explorer = "https://sepolia.etherscan.io"

// mockSender implements Sender for testing
type mockSender struct {
	receipt *types.TransferReceipt
	err     error
	release chan struct{}
	entered chan struct{}
}

func (m *mockSender) Send(ctx context.Context, req types.TransferRequest) (*types.TransferReceipt, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return m.receipt, m.err
}

// reasonError is a submission failure carrying a structured reason
type reasonError struct {
	reason string
}

func (e *reasonError) Error() string  { return "call failed: " + e.reason }
func (e *reasonError) Reason() string { return e.reason }

// rpcFailure has exported fields but no reason
type rpcFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcFailure) Error() string { return e.Message }

// emptyError has neither a message nor exported fields
type emptyError struct{}

func (emptyError) Error() string { return "" }

func newRequest(t *testing.T) types.TransferRequest {
	t.Helper()
	req, err := types.NewTransferRequest("0.1",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"deadbeef")
	require.NoError(t, err)
	return *req
}

func newTestWorkflow(sender Sender, opts ...Option) *Workflow {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewWorkflow(sender, explorer, append([]Option{WithLogger(logger)}, opts...)...)
}

// recorder collects transitions in order
type recorder struct {
	mu     sync.Mutex
	states []types.NetworkResponse
}

func (r *recorder) listen(resp types.NetworkResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, resp)
}

func (r *recorder) statuses() []types.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Status, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Status)
	}
	return out
}

func TestWorkflow_StartsIdle(t *testing.T) {
	w := newTestWorkflow(&mockSender{})

	assert.Equal(t, types.StatusIdle, w.State().Status)
	assert.Equal(t, "idle", w.State().Status.String())
	assert.False(t, w.Pending())
}

func TestWorkflow_PendingBeforeSettlement(t *testing.T) {
	sender := &mockSender{
		receipt: &types.TransferReceipt{Status: 1, TransactionHash: "0xabc"},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	w := newTestWorkflow(sender)

	req := newRequest(t)
	done := make(chan types.NetworkResponse, 1)
	go func() {
		resp, err := w.Submit(context.Background(), req)
		assert.NoError(t, err)
		done <- resp
	}()

	<-sender.entered
	assert.Equal(t, types.StatusPending, w.State().Status)
	assert.Equal(t, types.MessageNone, w.State().Message.Kind)
	assert.True(t, w.Pending())

	close(sender.release)
	resp := <-done
	assert.Equal(t, types.StatusComplete, resp.Status)
	assert.False(t, w.Pending())
}

func TestWorkflow_Complete(t *testing.T) {
	hash := "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	w := newTestWorkflow(&mockSender{receipt: &types.TransferReceipt{Status: 1, TransactionHash: hash}})

	rec := &recorder{}
	w.Subscribe(rec.listen)

	resp, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, resp.Status)
	require.True(t, resp.Message.IsLink())
	assert.Equal(t, explorer+"/tx/"+hash, resp.Message.URL)
	assert.Equal(t, "View transaction", resp.Message.Label)
	assert.Contains(t, resp.Message.String(), explorer+"/tx/"+hash)
	assert.Equal(t, resp, w.State())
	assert.Equal(t, []types.Status{types.StatusPending, types.StatusComplete}, rec.statuses())
}

func TestWorkflow_ExplorerURLTrailingSlash(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	w := NewWorkflow(&mockSender{receipt: &types.TransferReceipt{Status: 1, TransactionHash: "0x01"}},
		explorer+"/", WithLogger(logger))

	resp, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, explorer+"/tx/0x01", resp.Message.URL)
	assert.Equal(t, explorer+"/tx/0x01", TransactionURL(explorer+"/", "0x01"))
}

func TestClassify(t *testing.T) {
	resp := Classify(&types.TransferReceipt{Status: 1, TransactionHash: "0x01"}, explorer)
	assert.Equal(t, types.StatusComplete, resp.Status)
	assert.Equal(t, explorer+"/tx/0x01", resp.Message.URL)

	resp = Classify(&types.TransferReceipt{Status: 0, TransactionHash: "0x02"}, explorer)
	assert.Equal(t, types.StatusError, resp.Status)
	assert.JSONEq(t, `{"status":0,"transactionHash":"0x02"}`, resp.Message.Text)
}

func TestWorkflow_ChainRejection(t *testing.T) {
	receipt := &types.TransferReceipt{Status: 0, TransactionHash: "0xdead"}
	w := newTestWorkflow(&mockSender{receipt: receipt})

	resp, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)

	assert.Equal(t, types.StatusError, resp.Status)
	assert.Equal(t, types.MessagePlainText, resp.Message.Kind)
	assert.JSONEq(t, `{"status":0,"transactionHash":"0xdead"}`, resp.Message.Text)
}

func TestWorkflow_SubmissionFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "structured reason",
			err:      &reasonError{reason: "insufficient funds"},
			expected: "insufficient funds",
		},
		{
			name:     "wrapped structured reason",
			err:      errors.Join(errors.New("send"), &reasonError{reason: "insufficient funds"}),
			expected: "insufficient funds",
		},
		{
			name:     "plain error",
			err:      errors.New("connection refused"),
			expected: "connection refused",
		},
		{
			name:     "error with fields",
			err:      &rpcFailure{Code: -32000, Message: "nonce too low"},
			expected: `{"code":-32000,"message":"nonce too low"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorkflow(&mockSender{err: tt.err})

			resp, err := w.Submit(context.Background(), newRequest(t))
			require.NoError(t, err)

			assert.Equal(t, types.StatusError, resp.Status)
			assert.Equal(t, tt.expected, resp.Message.Text)
		})
	}
}

func TestWorkflow_SubmissionFailureDumpIsNeverEmpty(t *testing.T) {
	w := newTestWorkflow(&mockSender{err: emptyError{}})

	resp, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)

	assert.Equal(t, types.StatusError, resp.Status)
	assert.NotEmpty(t, strings.TrimSpace(resp.Message.Text))
}

func TestWorkflow_NilReceipt(t *testing.T) {
	w := newTestWorkflow(&mockSender{})

	resp, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, resp.Status)
}

func TestWorkflow_ResubmitResetsToPending(t *testing.T) {
	sender := &mockSender{err: &reasonError{reason: "insufficient funds"}}
	w := newTestWorkflow(sender)

	rec := &recorder{}
	w.Subscribe(rec.listen)

	resp, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)
	require.Equal(t, types.StatusError, resp.Status)

	sender.err = nil
	sender.receipt = &types.TransferReceipt{Status: 1, TransactionHash: "0x01"}

	resp, err = w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, resp.Status)

	assert.Equal(t, []types.Status{
		types.StatusPending, types.StatusError,
		types.StatusPending, types.StatusComplete,
	}, rec.statuses())

	// The pending transition of the second attempt carries no stale message
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, types.Message{}, rec.states[2].Message)
}

func TestWorkflow_RejectsConcurrentSubmit(t *testing.T) {
	sender := &mockSender{
		receipt: &types.TransferReceipt{Status: 1, TransactionHash: "0x01"},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	w := newTestWorkflow(sender)

	req := newRequest(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := w.Submit(context.Background(), req)
		assert.NoError(t, err)
	}()

	<-sender.entered

	_, err := w.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrTransferInFlight)
	assert.Equal(t, types.StatusPending, w.State().Status)

	close(sender.release)
	<-done

	assert.Equal(t, types.StatusComplete, w.State().Status)
}

func TestWorkflow_Unsubscribe(t *testing.T) {
	w := newTestWorkflow(&mockSender{receipt: &types.TransferReceipt{Status: 1}})

	rec := &recorder{}
	unsubscribe := w.Subscribe(rec.listen)
	unsubscribe()

	_, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)
	assert.Empty(t, rec.statuses())
}

func TestWorkflow_Metrics(t *testing.T) {
	m := metrics.New()
	sender := &mockSender{receipt: &types.TransferReceipt{Status: 1, TransactionHash: "0x01"}}
	w := newTestWorkflow(sender, WithMetrics(m, "sepolia"))

	_, err := w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)

	sender.receipt = &types.TransferReceipt{Status: 0, TransactionHash: "0x02"}
	_, err = w.Submit(context.Background(), newRequest(t))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferCount("sepolia", "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferCount("sepolia", "error")))
}
