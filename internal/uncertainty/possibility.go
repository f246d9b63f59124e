package uncertainty

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/ports"
)

// calendarHorizon es la ventana de eventos futuros a considerar.
const calendarHorizon = 5 * 24 * time.Hour

// Possibility (Po) mide la estabilidad del contexto: eventos macro
// relevantes e inminentes bajan el score; sin eventos, posibilidad máxima.
type Possibility struct {
	news ports.NewsProvider
	now  func() time.Time
}

// NewPossibility crea el scorer de posibilidad.
func NewPossibility(news ports.NewsProvider) *Possibility {
	return &Possibility{news: news, now: time.Now}
}

// Score devuelve la posibilidad en [0,1].
//
// Por cada evento futuro: score temporal (más cercano = más bajo)
// multiplicado por el descuento de impacto (high descuenta más que low).
// El MÍNIMO entre todos los eventos gana: el evento más cercano y de
// mayor impacto domina, reflejando el riesgo de desestabilización en el
// peor caso. Sin eventos relevantes devuelve 1.0 calculado: ausencia
// de riesgo es posibilidad máxima, no un fallback.
func (p *Possibility) Score(ctx context.Context, ticker string) domain.Score {
	now := p.now()
	events, err := p.news.EconomicCalendar(ctx, ticker, now, now.Add(calendarHorizon))
	if err != nil {
		return domain.Neutral(0.5, fmt.Sprintf("calendar fetch: %v", err))
	}
	if len(events) == 0 {
		return domain.Computed(1.0)
	}

	lowest := -1.0
	for _, ev := range events {
		daysUntil := ev.Datetime.Sub(now).Hours() / 24
		if daysUntil < 0 {
			// Eventos pasados no desestabilizan nada.
			continue
		}

		score := timeScore(daysUntil) * impactMultiplier(ev.Impact)
		if lowest < 0 || score < lowest {
			lowest = score
		}
	}

	if lowest < 0 {
		return domain.Neutral(0.5, "only past events")
	}
	return domain.Computed(lowest)
}

// timeScore puntúa la cercanía temporal del evento.
func timeScore(daysUntil float64) float64 {
	switch {
	case daysUntil > 3:
		return 1.0
	case daysUntil > 2:
		return 0.8
	case daysUntil > 1:
		return 0.6
	default:
		return 0.2
	}
}

// impactMultiplier descuenta según la severidad del evento.
func impactMultiplier(impact string) float64 {
	switch strings.ToLower(impact) {
	case "high":
		return 0.5
	case "medium":
		return 0.7
	case "low":
		return 0.9
	default:
		return 0.7
	}
}
