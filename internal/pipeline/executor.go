package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/ports"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultPollTimeout  = 15 * time.Second
)

// Executor submits gated order intents to the broker and watches them to
// a terminal state: Created → Submitted → Polling → {Filled, PartFilled,
// Cancelled, Inactive, TimedOut}.
type Executor struct {
	broker       ports.Broker
	minSize      float64
	maxSize      float64
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewExecutor builds an executor over the shared broker session.
func NewExecutor(broker ports.Broker, minSize, maxSize float64) *Executor {
	return &Executor{
		broker:       broker,
		minSize:      minSize,
		maxSize:      maxSize,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
}

// SetPollTimings overrides the fill-polling cadence. Used by tests to
// avoid real 15s waits.
func (e *Executor) SetPollTimings(interval, timeout time.Duration) {
	e.pollInterval = interval
	e.pollTimeout = timeout
}

// Execute runs the order state machine for one intent. It never returns
// an error: broker failures are business outcomes, surfaced as a failed
// OrderResult. A panic anywhere in submission or polling is recovered
// and mapped to FailException: the pipeline must not crash on broker bugs.
func (e *Executor) Execute(ctx context.Context, intent domain.OrderIntent) (result domain.OrderResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("order execution panicked", "ticker", intent.Ticker, "panic", r)
			result = e.failure(intent, domain.FailException, "", fmt.Sprintf("panic: %v", r))
		}
	}()

	// HOLD never reaches submission. The gate already blocks it; this
	// guard keeps the executor safe when called directly.
	if intent.Action == domain.DirectionHold {
		return e.failure(intent, domain.FailHoldSignal, "", "hold signal, nothing to execute")
	}

	if !e.broker.IsConnected(ctx) {
		return e.failure(intent, domain.FailBrokerUnreachable, "", "broker session disconnected")
	}

	contract, err := e.broker.ResolveContract(ctx, intent.Ticker)
	if err != nil {
		if errors.Is(err, domain.ErrBrokerDisconnected) {
			return e.failure(intent, domain.FailBrokerUnreachable, "", err.Error())
		}
		return e.failure(intent, domain.FailContractNotFound, "", fmt.Sprintf("resolve %s: %v", intent.Ticker, err))
	}

	qty := clamp(intent.PositionSize, e.minSize, e.maxSize)

	slog.Info("submitting market order",
		"ticker", intent.Ticker,
		"action", intent.Action,
		"qty", qty,
		"entry", intent.EntryPrice,
	)

	handle, err := e.broker.SubmitMarketOrder(ctx, contract, intent.Action, qty)
	if err != nil {
		if errors.Is(err, domain.ErrBrokerDisconnected) {
			return e.failure(intent, domain.FailBrokerUnreachable, "", err.Error())
		}
		return e.failure(intent, domain.FailException, "", fmt.Sprintf("submit order: %v", err))
	}

	return e.pollToTerminal(ctx, intent, handle, qty)
}

// pollToTerminal observes order status at a fixed interval until the
// broker reports a terminal state, the timeout expires, or ctx is
// cancelled. Cancellation does not leak the in-flight state: the order
// id is logged so an operator can follow up.
func (e *Executor) pollToTerminal(ctx context.Context, intent domain.OrderIntent, handle domain.OrderHandle, qty float64) domain.OrderResult {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(e.pollTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("polling cancelled, order remains outstanding at broker",
				"order_id", handle.OrderID, "ticker", intent.Ticker)
			return e.failure(intent, domain.FailNotFilled, handle.OrderID,
				fmt.Sprintf("polling cancelled: %v", ctx.Err()))

		case <-deadline.C:
			// The order is left outstanding at the broker; this
			// pipeline does not cancel it.
			slog.Warn("order not filled within timeout, left outstanding",
				"order_id", handle.OrderID, "ticker", intent.Ticker, "timeout", e.pollTimeout)
			return e.failure(intent, domain.FailNotFilled, handle.OrderID, "order not filled within timeout")

		case <-ticker.C:
			snap, err := e.broker.PollStatus(ctx, handle)
			if err != nil {
				// Transient poll errors do not abort the wait.
				slog.Debug("poll status failed", "order_id", handle.OrderID, "err", err)
				continue
			}
			if !snap.State.Terminal() {
				continue
			}

			switch snap.State {
			case domain.BrokerFilled, domain.BrokerPartFilled:
				fillPrice := snap.AvgFillPrice
				if fillPrice <= 0 {
					fillPrice = intent.EntryPrice
				}
				slog.Info("order filled",
					"order_id", handle.OrderID,
					"ticker", intent.Ticker,
					"fill_price", fillPrice,
					"shares", qty,
				)
				return domain.OrderResult{
					Success:    true,
					OrderID:    handle.OrderID,
					Ticker:     intent.Ticker,
					Action:     intent.Action,
					Shares:     qty,
					FillPrice:  fillPrice,
					TotalValue: qty * fillPrice,
					Status:     domain.StatusExecuted,
					Timestamp:  time.Now().UTC(),
				}
			default:
				// Cancelled or Inactive: surface the broker state as-is.
				return domain.OrderResult{
					Success:    false,
					OrderID:    handle.OrderID,
					Ticker:     intent.Ticker,
					Action:     intent.Action,
					Status:     domain.StatusCancelled,
					FailReason: domain.FailNotFilled,
					Error:      fmt.Sprintf("order not executed: %s", snap.State),
					Timestamp:  time.Now().UTC(),
				}
			}
		}
	}
}

func (e *Executor) failure(intent domain.OrderIntent, reason domain.FailReason, orderID, msg string) domain.OrderResult {
	status := domain.StatusCancelled
	if reason == domain.FailNotFilled {
		status = domain.StatusTimeout
	}
	return domain.OrderResult{
		Success:    false,
		OrderID:    orderID,
		Ticker:     intent.Ticker,
		Action:     intent.Action,
		Status:     status,
		FailReason: reason,
		Error:      msg,
		Timestamp:  time.Now().UTC(),
	}
}
