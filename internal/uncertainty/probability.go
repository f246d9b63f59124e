package uncertainty

import (
	"context"
	"math"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Probability (Pr) evalúa la fuerza de la señal recibida de la estrategia,
// independiente de la estrategia que la generó: Pr = strength × confidence.
type Probability struct{}

// NewProbability crea el scorer de probabilidad. No tiene dependencias:
// trabaja solo con los campos de la señal.
func NewProbability() *Probability {
	return &Probability{}
}

// Score devuelve strength × confidence clampeado a [0,1].
// Fallback neutro 0.5 si algún campo no es numérico.
func (p *Probability) Score(_ context.Context, sig domain.Signal) domain.Score {
	if math.IsNaN(sig.Strength) || math.IsNaN(sig.Confidence) {
		return domain.Neutral(0.5, "strength or confidence not numeric")
	}
	return domain.Computed(sig.Strength * sig.Confidence)
}
