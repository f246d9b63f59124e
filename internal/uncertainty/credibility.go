package uncertainty

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/ports"
)

// maxNewsItems limita las noticias a puntuar por señal.
const maxNewsItems = 15

// Credibility (Cr) mide el sentiment medio de las noticias recientes del
// ticker, normalizado a [0,1].
type Credibility struct {
	news      ports.NewsProvider
	sentiment ports.SentimentModel
	maxItems  int
}

// NewCredibility crea el scorer de credibilidad.
func NewCredibility(news ports.NewsProvider, sentiment ports.SentimentModel) *Credibility {
	return &Credibility{news: news, sentiment: sentiment, maxItems: maxNewsItems}
}

// Score puntúa el sentiment de cada noticia en [-1,+1], promedia y
// remapea a [0,1] con (avg+1)/2. Sin noticias puntuables devuelve el
// neutro 0.5: no hay evidencia en ninguna dirección.
func (c *Credibility) Score(ctx context.Context, ticker string) domain.Score {
	items, err := c.news.TickerNews(ctx, ticker, c.maxItems)
	if err != nil {
		return domain.Neutral(0.5, fmt.Sprintf("news fetch: %v", err))
	}
	if len(items) == 0 {
		return domain.Neutral(0.5, "no news")
	}

	var sum float64
	var scored int
	for _, item := range items {
		text := strings.TrimSpace(item.Headline + " " + item.Summary)
		if text == "" {
			continue
		}
		s, err := c.sentiment.ScoreSentiment(ctx, text, ticker)
		if err != nil {
			// Una noticia impuntuable no invalida el resto.
			continue
		}
		sum += s
		scored++
	}

	if scored == 0 {
		return domain.Neutral(0.5, "no scoreable sentiment")
	}

	avg := sum / float64(scored)
	return domain.Computed((avg + 1) / 2)
}
