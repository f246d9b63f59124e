package pipeline

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Gate decides whether a scored signal becomes an order intent.
// Pure and deterministic: same (signal, breakdown, threshold) always
// yields the same decision, with no side effects.
type Gate struct {
	threshold float64
	baseSize  float64
	minSize   float64
	maxSize   float64
}

// NewGate builds a gate with the configured reliability threshold and
// position size bounds. Sizes come pre-validated from config.
func NewGate(threshold, baseSize, minSize, maxSize float64) *Gate {
	return &Gate{threshold: threshold, baseSize: baseSize, minSize: minSize, maxSize: maxSize}
}

// Threshold returns the active reliability threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Decide gates the signal. Exactly one of the returns is non-nil.
//
// Order of checks: missing core fields reject independently of
// reliability; HOLD always rejects, even at reliability 1.0; then the
// threshold comparison, inclusive on the boundary. The intent uses the
// fixed base position size clamped to [min, max]; size is never scaled
// by reliability.
func (g *Gate) Decide(sig domain.Signal, bd domain.Breakdown) (*domain.OrderIntent, *domain.RejectionRecord) {
	if missing := sig.MissingFields(); len(missing) > 0 {
		return nil, &domain.RejectionRecord{
			Ticker:      sig.Ticker,
			Reason:      fmt.Sprintf("missing fields: %s", strings.Join(missing, ", ")),
			Reliability: bd.Reliability,
		}
	}

	if sig.Direction == domain.DirectionHold {
		return nil, &domain.RejectionRecord{
			Ticker:      sig.Ticker,
			Reason:      "hold signal",
			Reliability: bd.Reliability,
		}
	}

	if bd.Reliability < g.threshold {
		return nil, &domain.RejectionRecord{
			Ticker:      sig.Ticker,
			Reason:      "insufficient reliability",
			Reliability: bd.Reliability,
		}
	}

	return &domain.OrderIntent{
		Ticker:       sig.Ticker,
		Action:       sig.Direction,
		EntryPrice:   sig.EntryPrice,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		PositionSize: clamp(g.baseSize, g.minSize, g.maxSize),
		Breakdown:    bd,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
