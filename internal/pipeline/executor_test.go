package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/pipeline"
)

// mockBroker scripts the broker session: connectivity, contract
// resolution and a sequence of poll snapshots consumed in order.
type mockBroker struct {
	connected   bool
	resolveErr  error
	submitErr   error
	snapshots   []domain.OrderSnapshot
	pollErrs    []error
	polls       int
	submitted   []float64
	panicOnPoll bool
}

func (m *mockBroker) IsConnected(context.Context) bool { return m.connected }

func (m *mockBroker) ResolveContract(_ context.Context, ticker string) (domain.Contract, error) {
	if m.resolveErr != nil {
		return domain.Contract{}, m.resolveErr
	}
	return domain.Contract{ConID: 42, Symbol: ticker, Exchange: "SMART", Currency: "USD"}, nil
}

func (m *mockBroker) SubmitMarketOrder(_ context.Context, _ domain.Contract, _ domain.Direction, qty float64) (domain.OrderHandle, error) {
	if m.submitErr != nil {
		return domain.OrderHandle{}, m.submitErr
	}
	m.submitted = append(m.submitted, qty)
	return domain.OrderHandle{OrderID: "ord-1", ConID: 42}, nil
}

func (m *mockBroker) PollStatus(context.Context, domain.OrderHandle) (domain.OrderSnapshot, error) {
	if m.panicOnPoll {
		panic("broker library bug")
	}
	i := m.polls
	m.polls++
	if i < len(m.pollErrs) && m.pollErrs[i] != nil {
		return domain.OrderSnapshot{}, m.pollErrs[i]
	}
	if i >= len(m.snapshots) {
		return domain.OrderSnapshot{State: domain.BrokerSubmitted}, nil
	}
	return m.snapshots[i], nil
}

func fastExecutor(broker *mockBroker) *pipeline.Executor {
	e := pipeline.NewExecutor(broker, 10, 500)
	e.SetPollTimings(time.Millisecond, 50*time.Millisecond)
	return e
}

func buyIntent() domain.OrderIntent {
	return domain.OrderIntent{
		Ticker:       "AAPL",
		Action:       domain.DirectionBuy,
		EntryPrice:   150,
		StopLoss:     145,
		TakeProfit:   160,
		PositionSize: 100,
	}
}

func TestExecuteFillsAfterPolling(t *testing.T) {
	broker := &mockBroker{connected: true, snapshots: []domain.OrderSnapshot{
		{State: domain.BrokerSubmitted},
		{State: domain.BrokerSubmitted},
		{State: domain.BrokerFilled, AvgFillPrice: 150.25},
	}}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())

	require.True(t, result.Success)
	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, domain.StatusExecuted, result.Status)
	assert.Equal(t, 100.0, result.Shares)
	assert.Equal(t, 150.25, result.FillPrice)
	assert.InDelta(t, 15025.0, result.TotalValue, 1e-9)
}

func TestExecutePartialFillIsSuccess(t *testing.T) {
	broker := &mockBroker{connected: true, snapshots: []domain.OrderSnapshot{
		{State: domain.BrokerPartFilled, AvgFillPrice: 149.9},
	}}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	assert.True(t, result.Success)
	assert.Equal(t, 149.9, result.FillPrice)
}

func TestExecuteFillPriceFallsBackToEntry(t *testing.T) {
	broker := &mockBroker{connected: true, snapshots: []domain.OrderSnapshot{
		{State: domain.BrokerFilled, AvgFillPrice: 0},
	}}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	require.True(t, result.Success)
	assert.Equal(t, 150.0, result.FillPrice)
	assert.InDelta(t, 15000.0, result.TotalValue, 1e-9)
}

func TestExecuteDisconnectedBroker(t *testing.T) {
	broker := &mockBroker{connected: false}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	require.False(t, result.Success)
	assert.Equal(t, domain.FailBrokerUnreachable, result.FailReason)
	assert.Empty(t, broker.submitted)
}

func TestExecuteUnresolvableContract(t *testing.T) {
	broker := &mockBroker{connected: true, resolveErr: domain.ErrContractNotFound}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	require.False(t, result.Success)
	assert.Equal(t, domain.FailContractNotFound, result.FailReason)
	assert.Empty(t, broker.submitted)
}

func TestExecuteHoldNeverSubmits(t *testing.T) {
	broker := &mockBroker{connected: true}
	intent := buyIntent()
	intent.Action = domain.DirectionHold

	result := fastExecutor(broker).Execute(context.Background(), intent)
	require.False(t, result.Success)
	assert.Equal(t, domain.FailHoldSignal, result.FailReason)
	assert.Empty(t, broker.submitted)
}

func TestExecuteClampsQuantity(t *testing.T) {
	broker := &mockBroker{connected: true, snapshots: []domain.OrderSnapshot{
		{State: domain.BrokerFilled, AvgFillPrice: 150},
	}}
	intent := buyIntent()
	intent.PositionSize = 10000

	result := fastExecutor(broker).Execute(context.Background(), intent)
	require.True(t, result.Success)
	assert.Equal(t, []float64{500}, broker.submitted)
	assert.Equal(t, 500.0, result.Shares)
}

func TestExecuteCancelledOrder(t *testing.T) {
	broker := &mockBroker{connected: true, snapshots: []domain.OrderSnapshot{
		{State: domain.BrokerCancelled},
	}}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	require.False(t, result.Success)
	assert.Equal(t, domain.FailNotFilled, result.FailReason)
	assert.Equal(t, domain.StatusCancelled, result.Status)
	assert.Contains(t, result.Error, "Cancelled")
}

func TestExecuteTimeoutLeavesOrderOutstanding(t *testing.T) {
	// El broker nunca reporta estado terminal: el executor corta por
	// timeout sin cancelar la orden.
	broker := &mockBroker{connected: true}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	require.False(t, result.Success)
	assert.Equal(t, domain.FailNotFilled, result.FailReason)
	assert.Equal(t, domain.StatusTimeout, result.Status)
	assert.Equal(t, "ord-1", result.OrderID)
}

func TestExecuteToleratesTransientPollErrors(t *testing.T) {
	broker := &mockBroker{
		connected: true,
		pollErrs:  []error{assert.AnError, assert.AnError},
		snapshots: []domain.OrderSnapshot{
			{}, {}, // consumidos por los polls fallidos
			{State: domain.BrokerFilled, AvgFillPrice: 150},
		},
	}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	assert.True(t, result.Success)
}

func TestExecuteRecoversPanicAsException(t *testing.T) {
	broker := &mockBroker{connected: true, panicOnPoll: true}

	result := fastExecutor(broker).Execute(context.Background(), buyIntent())
	require.False(t, result.Success)
	assert.Equal(t, domain.FailException, result.FailReason)
	assert.Contains(t, result.Error, "panic")
}

func TestExecuteContextCancellationStopsPolling(t *testing.T) {
	broker := &mockBroker{connected: true}
	e := pipeline.NewExecutor(broker, 10, 500)
	e.SetPollTimings(time.Millisecond, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := e.Execute(ctx, buyIntent())
	require.False(t, result.Success)
	assert.Equal(t, domain.FailNotFilled, result.FailReason)
	assert.Contains(t, result.Error, "cancelled")
}
