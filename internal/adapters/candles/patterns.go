package candles

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/relbot/internal/ports"
)

// contextWindow is how many recent bars the detector inspects. Patterns
// older than that say nothing about the current setup.
const contextWindow = 15

// dojiBodyRatio: a body at most this fraction of the range counts as a doji.
const dojiBodyRatio = 0.1

// Detector implements ports.PatternDetector over fetched OHLCV bars.
// The recognizers are pure functions of the candle slice so they can be
// tested without any network.
type Detector struct {
	fetcher *Fetcher
}

// NewDetector builds the detector around a bar fetcher.
func NewDetector(fetcher *Fetcher) *Detector {
	return &Detector{fetcher: fetcher}
}

// DetectPatterns fetches recent bars for the ticker at the given
// timeframe and returns every recognized pattern, oldest first.
func (d *Detector) DetectPatterns(ctx context.Context, ticker, timeframe string) ([]ports.Pattern, error) {
	bars, err := d.fetcher.Fetch(ctx, ticker, timeframe)
	if err != nil {
		return nil, err
	}
	if len(bars) > contextWindow {
		bars = bars[len(bars)-contextWindow:]
	}
	patterns := Recognize(bars)
	slog.Debug("patterns detected",
		"ticker", ticker, "timeframe", timeframe, "bars", len(bars), "patterns", len(patterns))
	return patterns, nil
}

// Recognize scans the bar window and returns all candlestick patterns
// found. Position is the index of the pattern's last candle within the
// window, so higher positions are more recent.
func Recognize(bars []Candle) []ports.Pattern {
	var found []ports.Pattern
	add := func(i int, name string, typ ports.PatternType, strength float64) {
		found = append(found, ports.Pattern{
			Name:     name,
			Type:     typ,
			Position: i,
			Strength: strength,
			Date:     bars[i].Time,
		})
	}

	for i := range bars {
		c := bars[i]
		if c.Range() <= 0 {
			continue
		}

		// Single-candle patterns.
		switch {
		case isDoji(c):
			add(i, "doji", ports.PatternNeutral, 0.5)
		case isHammer(c):
			add(i, "hammer", ports.PatternBullish, 0.7)
		case isShootingStar(c):
			add(i, "shooting_star", ports.PatternBearish, 0.7)
		case isMarubozu(c):
			if c.Bullish() {
				add(i, "bullish_marubozu", ports.PatternBullish, 0.8)
			} else {
				add(i, "bearish_marubozu", ports.PatternBearish, 0.8)
			}
		}

		// Two-candle patterns.
		if i >= 1 {
			prev := bars[i-1]
			switch {
			case isBullishEngulfing(prev, c):
				add(i, "bullish_engulfing", ports.PatternBullish, 0.9)
			case isBearishEngulfing(prev, c):
				add(i, "bearish_engulfing", ports.PatternBearish, 0.9)
			case isPiercingLine(prev, c):
				add(i, "piercing_line", ports.PatternBullish, 0.7)
			case isDarkCloudCover(prev, c):
				add(i, "dark_cloud_cover", ports.PatternBearish, 0.7)
			}
		}

		// Three-candle patterns.
		if i >= 2 {
			a, b := bars[i-2], bars[i-1]
			switch {
			case isMorningStar(a, b, c):
				add(i, "morning_star", ports.PatternBullish, 1.0)
			case isEveningStar(a, b, c):
				add(i, "evening_star", ports.PatternBearish, 1.0)
			}
		}
	}
	return found
}

func isDoji(c Candle) bool {
	return c.Body() <= c.Range()*dojiBodyRatio
}

// isHammer: small body in the top third with a long lower shadow.
func isHammer(c Candle) bool {
	body := c.Body()
	if body <= 0 {
		return false
	}
	lowerShadow := min(c.Open, c.Close) - c.Low
	upperShadow := c.High - max(c.Open, c.Close)
	return lowerShadow >= 2*body && upperShadow <= body
}

// isShootingStar: small body in the bottom third with a long upper shadow.
func isShootingStar(c Candle) bool {
	body := c.Body()
	if body <= 0 {
		return false
	}
	lowerShadow := min(c.Open, c.Close) - c.Low
	upperShadow := c.High - max(c.Open, c.Close)
	return upperShadow >= 2*body && lowerShadow <= body
}

// isMarubozu: the body fills nearly the whole range, almost no shadows.
func isMarubozu(c Candle) bool {
	return c.Body() >= c.Range()*0.95
}

func isBullishEngulfing(prev, c Candle) bool {
	return prev.Bearish() && c.Bullish() &&
		c.Open <= prev.Close && c.Close >= prev.Open
}

func isBearishEngulfing(prev, c Candle) bool {
	return prev.Bullish() && c.Bearish() &&
		c.Open >= prev.Close && c.Close <= prev.Open
}

// isPiercingLine: after a down candle, an up candle opens below the
// prior low and closes above the midpoint of the prior body.
func isPiercingLine(prev, c Candle) bool {
	if !prev.Bearish() || !c.Bullish() {
		return false
	}
	midpoint := (prev.Open + prev.Close) / 2
	return c.Open < prev.Close && c.Close > midpoint && c.Close < prev.Open
}

// isDarkCloudCover: mirror of the piercing line.
func isDarkCloudCover(prev, c Candle) bool {
	if !prev.Bullish() || !c.Bearish() {
		return false
	}
	midpoint := (prev.Open + prev.Close) / 2
	return c.Open > prev.Close && c.Close < midpoint && c.Close > prev.Open
}

// isMorningStar: long down candle, small-bodied middle candle gapping
// down, then an up candle closing into the first body.
func isMorningStar(a, b, c Candle) bool {
	if !a.Bearish() || !c.Bullish() {
		return false
	}
	if a.Range() <= 0 || b.Body() > a.Body()*0.5 {
		return false
	}
	midpoint := (a.Open + a.Close) / 2
	return c.Close > midpoint
}

// isEveningStar: mirror of the morning star.
func isEveningStar(a, b, c Candle) bool {
	if !a.Bullish() || !c.Bearish() {
		return false
	}
	if a.Range() <= 0 || b.Body() > a.Body()*0.5 {
		return false
	}
	midpoint := (a.Open + a.Close) / 2
	return c.Close < midpoint
}
