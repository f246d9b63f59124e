package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/pipeline"
)

func validSignal(dir domain.Direction) domain.Signal {
	return domain.Signal{
		Ticker:     "AAPL",
		Direction:  dir,
		EntryPrice: 150,
		StopLoss:   145,
		TakeProfit: 160,
		Strength:   0.8,
		Confidence: 0.9,
	}
}

func breakdownWith(reliability float64) domain.Breakdown {
	s := domain.Computed(reliability)
	return domain.Breakdown{
		Probability: s, Plausibility: s, Credibility: s, Possibility: s,
		Weights: domain.DefaultWeights(), Reliability: reliability,
	}
}

func TestGateAcceptsAboveThreshold(t *testing.T) {
	gate := pipeline.NewGate(0.6, 100, 10, 500)

	intent, rejection := gate.Decide(validSignal(domain.DirectionBuy), breakdownWith(0.75))
	require.Nil(t, rejection)
	require.NotNil(t, intent)
	assert.Equal(t, "AAPL", intent.Ticker)
	assert.Equal(t, domain.DirectionBuy, intent.Action)
	assert.Equal(t, 100.0, intent.PositionSize)
	assert.InDelta(t, 0.75, intent.Breakdown.Reliability, 1e-9)
}

func TestGateThresholdBoundaryIsInclusive(t *testing.T) {
	gate := pipeline.NewGate(0.6, 100, 10, 500)

	intent, rejection := gate.Decide(validSignal(domain.DirectionBuy), breakdownWith(0.6))
	assert.Nil(t, rejection)
	assert.NotNil(t, intent)
}

func TestGateRejectsBelowThreshold(t *testing.T) {
	gate := pipeline.NewGate(0.6, 100, 10, 500)

	intent, rejection := gate.Decide(validSignal(domain.DirectionSell), breakdownWith(0.59))
	require.Nil(t, intent)
	require.NotNil(t, rejection)
	assert.Equal(t, "insufficient reliability", rejection.Reason)
	assert.InDelta(t, 0.59, rejection.Reliability, 1e-9)
}

func TestGateRejectsHoldEvenAtMaxReliability(t *testing.T) {
	gate := pipeline.NewGate(0.6, 100, 10, 500)

	intent, rejection := gate.Decide(validSignal(domain.DirectionHold), breakdownWith(1.0))
	require.Nil(t, intent)
	require.NotNil(t, rejection)
	assert.Equal(t, "hold signal", rejection.Reason)
}

func TestGateRejectsMissingFieldsFirst(t *testing.T) {
	gate := pipeline.NewGate(0.6, 100, 10, 500)

	sig := validSignal(domain.DirectionBuy)
	sig.StopLoss = 0
	sig.TakeProfit = 0

	intent, rejection := gate.Decide(sig, breakdownWith(1.0))
	require.Nil(t, intent)
	require.NotNil(t, rejection)
	assert.Equal(t, "missing fields: stop_loss, take_profit", rejection.Reason)
}

func TestGateClampsBaseSize(t *testing.T) {
	// base fuera de rango queda clampeado a los límites
	gate := pipeline.NewGate(0.6, 1000, 10, 500)
	intent, _ := gate.Decide(validSignal(domain.DirectionBuy), breakdownWith(0.9))
	require.NotNil(t, intent)
	assert.Equal(t, 500.0, intent.PositionSize)

	gate = pipeline.NewGate(0.6, 1, 10, 500)
	intent, _ = gate.Decide(validSignal(domain.DirectionBuy), breakdownWith(0.9))
	require.NotNil(t, intent)
	assert.Equal(t, 10.0, intent.PositionSize)
}

func TestGateIsDeterministic(t *testing.T) {
	gate := pipeline.NewGate(0.6, 100, 10, 500)
	sig := validSignal(domain.DirectionBuy)
	bd := breakdownWith(0.7)

	first, _ := gate.Decide(sig, bd)
	for i := 0; i < 5; i++ {
		next, rejection := gate.Decide(sig, bd)
		require.Nil(t, rejection)
		assert.Equal(t, *first, *next)
	}
}
