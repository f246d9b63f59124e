package candles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/relbot/internal/ports"
)

// Recognizers are tested in-package: they are the pure core the
// detector builds on.

func bar(o, h, l, c float64) Candle {
	return Candle{Time: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), Open: o, High: h, Low: l, Close: c}
}

func names(patterns []ports.Pattern) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.Name)
	}
	return out
}

func TestRecognizeDoji(t *testing.T) {
	found := Recognize([]Candle{bar(100, 101, 99, 100.1)})
	require.Len(t, found, 1)
	assert.Equal(t, "doji", found[0].Name)
	assert.Equal(t, ports.PatternNeutral, found[0].Type)
	assert.Equal(t, 0.5, found[0].Strength)
}

func TestRecognizeHammer(t *testing.T) {
	// Cuerpo pequeño arriba, sombra inferior larga
	found := Recognize([]Candle{bar(100, 100.6, 97, 100.5)})
	assert.Contains(t, names(found), "hammer")
}

func TestRecognizeShootingStar(t *testing.T) {
	// Cuerpo pequeño abajo, sombra superior larga
	found := Recognize([]Candle{bar(100.5, 103, 100, 100.1)})
	assert.Contains(t, names(found), "shooting_star")
}

func TestRecognizeMarubozu(t *testing.T) {
	found := Recognize([]Candle{bar(100, 105, 100, 104.9)})
	require.Len(t, found, 1)
	assert.Equal(t, "bullish_marubozu", found[0].Name)
	assert.Equal(t, ports.PatternBullish, found[0].Type)

	found = Recognize([]Candle{bar(105, 105, 100, 100.1)})
	require.Len(t, found, 1)
	assert.Equal(t, "bearish_marubozu", found[0].Name)
}

func TestRecognizeBullishEngulfing(t *testing.T) {
	found := Recognize([]Candle{
		bar(102, 102.5, 100.4, 100.5),   // bajista
		bar(100.3, 103.2, 100.2, 102.8), // alcista, envuelve el cuerpo anterior
	})
	assert.Contains(t, names(found), "bullish_engulfing")

	for _, p := range found {
		if p.Name == "bullish_engulfing" {
			assert.Equal(t, 1, p.Position)
			assert.Equal(t, 0.9, p.Strength)
		}
	}
}

func TestRecognizeBearishEngulfing(t *testing.T) {
	found := Recognize([]Candle{
		bar(100.5, 102.1, 100.3, 102),
		bar(102.2, 102.4, 99.9, 100.2),
	})
	assert.Contains(t, names(found), "bearish_engulfing")
}

func TestRecognizePiercingLine(t *testing.T) {
	found := Recognize([]Candle{
		bar(104, 104.2, 100, 100.5),   // bajista, cuerpo 104 a 100.5
		bar(100.2, 103, 100.1, 102.5), // abre bajo el cierre previo, cierra sobre el punto medio
	})
	assert.Contains(t, names(found), "piercing_line")
}

func TestRecognizeDarkCloudCover(t *testing.T) {
	found := Recognize([]Candle{
		bar(100.5, 104.1, 100.3, 104),
		bar(104.3, 104.5, 101, 101.8),
	})
	assert.Contains(t, names(found), "dark_cloud_cover")
}

func TestRecognizeMorningStar(t *testing.T) {
	found := Recognize([]Candle{
		bar(105, 105.2, 100.8, 101),     // bajista largo
		bar(100.8, 101.3, 100.2, 100.6), // cuerpo pequeño
		bar(100.9, 104.6, 100.7, 104.5), // alcista cerrando sobre el punto medio del primero
	})
	assert.Contains(t, names(found), "morning_star")
}

func TestRecognizeEveningStar(t *testing.T) {
	found := Recognize([]Candle{
		bar(101, 105.2, 100.8, 105),
		bar(105.2, 105.8, 104.9, 105.4),
		bar(105.1, 105.3, 101.2, 101.5),
	})
	assert.Contains(t, names(found), "evening_star")
}

func TestRecognizeSkipsZeroRangeBars(t *testing.T) {
	found := Recognize([]Candle{bar(100, 100, 100, 100)})
	assert.Empty(t, found)
}

func TestRecognizePositionsAreChronological(t *testing.T) {
	found := Recognize([]Candle{
		bar(100, 101, 99, 100.05), // doji en 0
		bar(100, 104, 100, 103.9), // marubozu alcista en 1
	})
	require.Len(t, found, 2)
	assert.Less(t, found[0].Position, found[1].Position)
}
