package ports

import "context"

// SentimentModel puntúa texto financiero vía un modelo de lenguaje externo.
type SentimentModel interface {
	// ScoreSentiment devuelve la polaridad del texto en [-1, +1]
	// respecto al ticker dado.
	ScoreSentiment(ctx context.Context, text, ticker string) (float64, error)

	// ScoreEventRelevance devuelve en [0, 1] cuánto afecta un evento
	// macro al ticker, dado el contexto de la empresa.
	ScoreEventRelevance(ctx context.Context, eventText, ticker, companyContext string) (float64, error)
}
