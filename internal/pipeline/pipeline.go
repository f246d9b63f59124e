package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/ports"
	"github.com/alejandrodnm/relbot/internal/uncertainty"
)

// Pipeline runs one signal end to end: score → gate → execute → record.
//
// Concurrent signals for the same ticker are serialized with a per-ticker
// mutex so they cannot race on the shared broker session; signals for
// different tickers proceed in parallel.
type Pipeline struct {
	calc     *uncertainty.Calculator
	gate     *Gate
	executor *Executor
	history  *History
	notifier ports.Notifier
	audit    ports.AuditStore

	mu      sync.Mutex
	tickers map[string]*sync.Mutex
}

// New wires the pipeline. notifier and audit may be nil; both are
// best-effort side channels.
func New(calc *uncertainty.Calculator, gate *Gate, executor *Executor, history *History, notifier ports.Notifier, audit ports.AuditStore) *Pipeline {
	return &Pipeline{
		calc:     calc,
		gate:     gate,
		executor: executor,
		history:  history,
		notifier: notifier,
		audit:    audit,
		tickers:  make(map[string]*sync.Mutex),
	}
}

// Gate exposes the gate (threshold) for the state endpoint.
func (p *Pipeline) Gate() *Gate { return p.gate }

// Calculator exposes the active calculator (weights) for the state endpoint.
func (p *Pipeline) Calculator() *uncertainty.Calculator { return p.calc }

// History exposes the run history for the state endpoint.
func (p *Pipeline) History() *History { return p.history }

// Process runs the full decision-and-execution pipeline for one signal
// and returns the outcome. It never returns an error: every failure mode
// below the HTTP layer is a structured business outcome.
func (p *Pipeline) Process(ctx context.Context, sig domain.Signal) domain.Outcome {
	unlock := p.lockTicker(sig.Ticker)
	defer unlock()

	start := time.Now()
	breakdown := p.calc.Calculate(ctx, sig)

	outcome := domain.Outcome{Signal: sig, Breakdown: breakdown}

	intent, rejection := p.gate.Decide(sig, breakdown)
	if rejection != nil {
		outcome.Rejection = rejection
		outcome.Result = rejectionResult(sig, *rejection)
		slog.Info("signal rejected",
			"ticker", sig.Ticker,
			"direction", sig.Direction,
			"reliability", breakdown.Reliability,
			"reason", rejection.Reason,
		)
	} else {
		outcome.Intent = intent
		outcome.Result = p.executor.Execute(ctx, *intent)
	}

	p.history.Record(outcome)

	if p.notifier != nil {
		if err := p.notifier.Outcome(ctx, outcome); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if p.audit != nil {
		if err := p.audit.RecordOutcome(ctx, outcome); err != nil {
			slog.Warn("audit store error", "err", err)
		}
	}

	slog.Info("signal processed",
		"ticker", sig.Ticker,
		"reliability", breakdown.Reliability,
		"position_opened", outcome.Result.Success,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return outcome
}

// lockTicker serializes pipeline runs per ticker. The map only grows:
// the universe of tickers a strategy emits is small and bounded.
func (p *Pipeline) lockTicker(ticker string) func() {
	p.mu.Lock()
	m, ok := p.tickers[ticker]
	if !ok {
		m = &sync.Mutex{}
		p.tickers[ticker] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// rejectionResult materializes the zero-economics failed result for a
// gated-out signal.
func rejectionResult(sig domain.Signal, rej domain.RejectionRecord) domain.OrderResult {
	reason := domain.FailReason("")
	if sig.Direction == domain.DirectionHold {
		reason = domain.FailHoldSignal
	}
	return domain.OrderResult{
		Success:    false,
		Ticker:     sig.Ticker,
		Action:     sig.Direction,
		Status:     domain.StatusCancelled,
		FailReason: reason,
		Error:      rej.Reason,
		Timestamp:  time.Now().UTC(),
	}
}
