package ports

import (
	"context"
	"time"
)

// PatternType clasifica un pattern candlestick.
type PatternType string

const (
	PatternBullish PatternType = "bullish"
	PatternBearish PatternType = "bearish"
	PatternNeutral PatternType = "neutral"
)

// Pattern es un pattern candlestick detectado en una serie OHLCV.
// Position es el índice de la vela dentro de la ventana analizada:
// mayor posición = vela más reciente.
type Pattern struct {
	Name     string
	Type     PatternType
	Position int
	Strength float64
	Date     time.Time
}

// PatternDetector detecta patterns candlestick sobre velas del timeframe dado.
type PatternDetector interface {
	DetectPatterns(ctx context.Context, ticker, timeframe string) ([]Pattern, error)
}
