package uncertainty_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/uncertainty"
)

func TestProbabilityScore(t *testing.T) {
	p := uncertainty.NewProbability()

	score := p.Score(context.Background(), domain.Signal{Strength: 0.8, Confidence: 0.9})
	assert.False(t, score.Fallback)
	assert.InDelta(t, 0.72, score.Value, 1e-9)

	// Señal débil con confianza alta sigue siendo débil
	score = p.Score(context.Background(), domain.Signal{Strength: 0.1, Confidence: 1.0})
	assert.InDelta(t, 0.1, score.Value, 1e-9)
}

func TestProbabilityNaNFallsBackToNeutral(t *testing.T) {
	p := uncertainty.NewProbability()

	score := p.Score(context.Background(), domain.Signal{Strength: math.NaN(), Confidence: 0.9})
	assert.True(t, score.Fallback)
	assert.Equal(t, 0.5, score.Value)
}

func TestProbabilityClampsOutOfRangeProduct(t *testing.T) {
	p := uncertainty.NewProbability()

	score := p.Score(context.Background(), domain.Signal{Strength: 2.0, Confidence: 1.5})
	assert.Equal(t, 1.0, score.Value)
	assert.False(t, score.Fallback)
}
