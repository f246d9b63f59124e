package pipeline

import (
	"sync"
	"time"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/google/uuid"
)

// historyCapacity caps the in-memory signal ledger. Oldest entries are
// evicted first; insertion order is significant for the "last N" read.
const historyCapacity = 1000

// History is the process-lifetime ledger of processed signals, open
// positions and aggregate counters. It is the only place pipeline
// outcomes are accumulated; Record is the single mutation entry point.
// Never persisted: lost on restart.
type History struct {
	mu                sync.Mutex
	capacity          int
	signals           []domain.SignalEntry
	positions         []domain.PositionRecord
	totalSignals      int
	positionsOpened   int
	positionsRejected int
	lastUpdate        time.Time
}

// Snapshot is a consistent read of the history for the state endpoint.
type Snapshot struct {
	TotalSignals      int
	PositionsOpened   int
	PositionsRejected int
	LastUpdate        time.Time
	LastSignals       []domain.SignalEntry
	Positions         []domain.PositionRecord
}

// NewHistory creates an empty history with the standard 1000-entry cap.
func NewHistory() *History {
	return &History{capacity: historyCapacity}
}

// Record appends one signal entry (evicting the oldest beyond capacity),
// bumps exactly one of opened/rejected, materializes a PositionRecord on
// success and refreshes the update timestamp. Atomic per run: a single
// mutex keeps counters and lists consistent.
func (h *History) Record(outcome domain.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now().UTC()
	sig := outcome.Signal

	entry := domain.SignalEntry{
		Timestamp:      now,
		Ticker:         sig.Ticker,
		Direction:      sig.Direction,
		EntryPrice:     sig.EntryPrice,
		StopLoss:       sig.StopLoss,
		TakeProfit:     sig.TakeProfit,
		Reliability:    outcome.Breakdown.Reliability,
		Breakdown:      outcome.Breakdown,
		PositionOpened: outcome.Result.Success,
		Outcome:        outcome.Result,
	}

	h.signals = append(h.signals, entry)
	if len(h.signals) > h.capacity {
		h.signals = h.signals[len(h.signals)-h.capacity:]
	}

	h.totalSignals++
	if outcome.Result.Success {
		h.positionsOpened++
		fillPrice := outcome.Result.FillPrice
		if fillPrice <= 0 {
			fillPrice = sig.EntryPrice
		}
		h.positions = append(h.positions, domain.PositionRecord{
			ID:          uuid.New().String(),
			Ticker:      sig.Ticker,
			Direction:   sig.Direction,
			EntryPrice:  fillPrice,
			StopLoss:    sig.StopLoss,
			TakeProfit:  sig.TakeProfit,
			Shares:      outcome.Result.Shares,
			OrderID:     outcome.Result.OrderID,
			OpenedAt:    now,
			Reliability: outcome.Breakdown.Reliability,
		})
	} else {
		h.positionsRejected++
	}
	h.lastUpdate = now
}

// Snapshot returns counters, the last n signal entries (newest last) and
// all open positions.
func (h *History) Snapshot(lastN int) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := 0
	if lastN > 0 && len(h.signals) > lastN {
		start = len(h.signals) - lastN
	}
	signals := make([]domain.SignalEntry, len(h.signals)-start)
	copy(signals, h.signals[start:])

	positions := make([]domain.PositionRecord, len(h.positions))
	copy(positions, h.positions)

	return Snapshot{
		TotalSignals:      h.totalSignals,
		PositionsOpened:   h.positionsOpened,
		PositionsRejected: h.positionsRejected,
		LastUpdate:        h.lastUpdate,
		LastSignals:       signals,
		Positions:         positions,
	}
}

// Len reports how many signal entries are currently retained.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.signals)
}
