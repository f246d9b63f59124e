package uncertainty

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// SignalScorer puntúa índices que dependen de la señal completa
// (probability, plausibility).
type SignalScorer interface {
	Score(ctx context.Context, sig domain.Signal) domain.Score
}

// TickerScorer puntúa índices que solo dependen del ticker
// (credibility, possibility).
type TickerScorer interface {
	Score(ctx context.Context, ticker string) domain.Score
}

// Calculator combina los cuatro índices de incertidumbre en el
// Breakdown de reliability: A = w1·Pr + w2·Pl + w3·Cr + w4·Po.
type Calculator struct {
	weights      domain.Weights
	probability  SignalScorer
	plausibility SignalScorer
	credibility  TickerScorer
	possibility  TickerScorer
}

// NewCalculator crea el calculador con los cuatro scorers inyectados.
// Los pesos ya vienen validados por config.
func NewCalculator(
	weights domain.Weights,
	probability SignalScorer,
	plausibility SignalScorer,
	credibility TickerScorer,
	possibility TickerScorer,
) *Calculator {
	return &Calculator{
		weights:      weights,
		probability:  probability,
		plausibility: plausibility,
		credibility:  credibility,
		possibility:  possibility,
	}
}

// Calculate evalúa los cuatro índices y devuelve el Breakdown.
//
// Los scorers son computaciones independientes sobre inputs disjuntos:
// se ejecutan en paralelo para reducir latencia sin cambiar el
// resultado. Cada scorer ya degrada a neutro por contrato; si aun así
// un panic escapa de alguno, el Breakdown entero colapsa a componentes
// neutros 0.5 en vez de tumbar la pipeline. Esta es la red de seguridad
// más externa del cálculo.
func (c *Calculator) Calculate(ctx context.Context, sig domain.Signal) domain.Breakdown {
	var (
		pr, pl, cr, po domain.Score
		panicked       bool
		mu             sync.Mutex
		wg             sync.WaitGroup
	)

	run := func(name string, fn func() domain.Score, out *domain.Score) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("index scorer panicked", "scorer", name, "panic", r)
					mu.Lock()
					panicked = true
					mu.Unlock()
				}
			}()
			*out = fn()
		}()
	}

	run("probability", func() domain.Score { return c.probability.Score(ctx, sig) }, &pr)
	run("plausibility", func() domain.Score { return c.plausibility.Score(ctx, sig) }, &pl)
	run("credibility", func() domain.Score { return c.credibility.Score(ctx, sig.Ticker) }, &cr)
	run("possibility", func() domain.Score { return c.possibility.Score(ctx, sig.Ticker) }, &po)
	wg.Wait()

	if panicked {
		return domain.NeutralBreakdown(c.weights, "scorer panic")
	}

	breakdown := domain.Aggregate(pr, pl, cr, po, c.weights)

	slog.Debug("reliability computed",
		"ticker", sig.Ticker,
		"probability", pr.Value,
		"plausibility", pl.Value,
		"credibility", cr.Value,
		"possibility", po.Value,
		"reliability", breakdown.Reliability,
	)
	return breakdown
}

// Weights expone los pesos activos (para el endpoint de estado).
func (c *Calculator) Weights() domain.Weights {
	return c.weights
}
