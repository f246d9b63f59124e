package ports

import (
	"context"
	"time"
)

// NewsItem es una noticia relevante para un ticker.
type NewsItem struct {
	Headline string
	Summary  string
	Datetime time.Time
	Source   string
}

// EconomicEvent es un evento del calendario macroeconómico ya filtrado
// por relevancia para el ticker consultado.
type EconomicEvent struct {
	Event     string
	Country   string
	Impact    string // high | medium | low
	Datetime  time.Time
	Relevance float64
}

// NewsProvider obtiene noticias y eventos macro para un ticker.
type NewsProvider interface {
	// TickerNews devuelve hasta maxItems noticias recientes del ticker.
	TickerNews(ctx context.Context, ticker string, maxItems int) ([]NewsItem, error)

	// EconomicCalendar devuelve los eventos macro relevantes para el
	// ticker en el rango [from, to], ordenados por relevancia.
	EconomicCalendar(ctx context.Context, ticker string, from, to time.Time) ([]EconomicEvent, error)
}
