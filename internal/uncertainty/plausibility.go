package uncertainty

import (
	"context"
	"fmt"
	"sort"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/ports"
)

// defaultLookback es el número de patterns recientes a considerar.
const defaultLookback = 5

// confirmationTimeframe mapea el timeframe de la señal al timeframe de
// confirmación, un paso más grueso. Un timeframe desconocido se confirma
// sobre sí mismo.
var confirmationTimeframe = map[string]string{
	"1m":  "5m",
	"5m":  "15m",
	"15m": "1h",
	"30m": "4h",
	"1h":  "4h",
	"4h":  "1d",
}

// Plausibility (Pl) mide la confirmación de la señal por patterns
// candlestick direccionales en un timeframe más grueso que el de la señal.
type Plausibility struct {
	detector ports.PatternDetector
	lookback int
}

// NewPlausibility crea el scorer de plausibilidad.
func NewPlausibility(detector ports.PatternDetector) *Plausibility {
	return &Plausibility{detector: detector, lookback: defaultLookback}
}

// ConfirmationTimeframe devuelve el timeframe de confirmación para el
// timeframe de señal dado.
func ConfirmationTimeframe(signalTF string) string {
	if tf, ok := confirmationTimeframe[signalTF]; ok {
		return tf
	}
	return signalTF
}

// Score calcula la plausibilidad en [0,1].
//
// Solo cuentan los últimos lookback patterns por posición cronológica,
// con pesos linealmente decrecientes de 1.0 (más reciente) a 0.5 (más
// viejo). Un pattern confirmatorio aporta weight × strength, uno neutro
// weight × 0.5, uno contrario 0. La suma se capea a 1.0.
//
// Cero patterns devuelve 0.0 calculado, NO neutro: la ausencia de
// confirmación es informativa. Un error del detector sí es neutro 0.5.
func (p *Plausibility) Score(ctx context.Context, sig domain.Signal) domain.Score {
	confirmTF := ConfirmationTimeframe(sig.EffectiveTimeframe())

	patterns, err := p.detector.DetectPatterns(ctx, sig.Ticker, confirmTF)
	if err != nil {
		return domain.Neutral(0.5, fmt.Sprintf("pattern detection: %v", err))
	}
	if len(patterns) == 0 {
		return domain.Computed(0.0)
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].Position < patterns[j].Position
	})
	if len(patterns) > p.lookback {
		patterns = patterns[len(patterns)-p.lookback:]
	}

	// Peso 1.0 para el pattern más reciente, decreciendo linealmente
	// hacia 0.5 para el más viejo de la ventana.
	score := 0.0
	n := len(patterns)
	for i := n - 1; i >= 0; i-- {
		pat := patterns[i]
		weight := 1.0 - (float64(n-1-i)/float64(n))*0.5

		switch {
		case confirms(pat.Type, sig.Direction):
			score += weight * pat.Strength
		case pat.Type == ports.PatternNeutral:
			score += weight * 0.5
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return domain.Computed(score)
}

// confirms devuelve true si el tipo de pattern va en la dirección de la señal.
func confirms(pt ports.PatternType, dir domain.Direction) bool {
	return (dir == domain.DirectionBuy && pt == ports.PatternBullish) ||
		(dir == domain.DirectionSell && pt == ports.PatternBearish)
}
