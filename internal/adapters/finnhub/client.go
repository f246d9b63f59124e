package finnhub

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/relbot/internal/ports"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"

	// Finnhub free tier: 60 req/min. Nos quedamos al 50% para no
	// quemar la cuota compartida con otros procesos.
	requestsPerSec = 0.5
	burst          = 5

	// Ventana de noticias de empresa: últimos 3 días.
	companyNewsWindow = 3 * 24 * time.Hour

	// relevanceThreshold filtra eventos macro poco relevantes.
	relevanceThreshold = 0.5
)

// Client implementa ports.NewsProvider contra la API de Finnhub.
// La relevancia de eventos macro se delega al SentimentModel, como el
// resto del scoring semántico.
type Client struct {
	http      *resty.Client
	apiKey    string
	limiter   *rate.Limiter
	relevance ports.SentimentModel
	now       func() time.Time
}

// NewClient crea el cliente con el base URL y api key dados.
func NewClient(baseURL, apiKey string, relevance ports.SentimentModel) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(500 * time.Millisecond),
		apiKey:    apiKey,
		limiter:   rate.NewLimiter(requestsPerSec, burst),
		relevance: relevance,
		now:       time.Now,
	}
}

type newsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Datetime int64  `json:"datetime"`
	Source   string `json:"source"`
}

type companyProfile struct {
	Name     string `json:"name"`
	Industry string `json:"finnhubIndustry"`
	Country  string `json:"country"`
}

type calendarResponse struct {
	EconomicCalendar []calendarEvent `json:"economicCalendar"`
}

type calendarEvent struct {
	Event   string `json:"event"`
	Country string `json:"country"`
	Impact  string `json:"impact"`
	Time    string `json:"time"` // "2006-01-02 15:04:05"
}

// TickerNews devuelve noticias de empresa más noticias generales
// filtradas por relevancia textual, hasta maxItems de cada fuente.
func (c *Client) TickerNews(ctx context.Context, ticker string, maxItems int) ([]ports.NewsItem, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("finnhub: api key not configured")
	}

	profile := c.companyProfile(ctx, ticker)

	items, err := c.companyNews(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	general, err := c.generalNews(ctx, ticker, profile)
	if err != nil {
		// Las noticias generales son complemento: si fallan, seguimos
		// con las de empresa.
		slog.Debug("general news fetch failed", "ticker", ticker, "err", err)
	} else {
		if len(general) > maxItems {
			general = general[:maxItems]
		}
		items = append(items, general...)
	}

	slog.Debug("ticker news fetched", "ticker", ticker, "items", len(items))
	return items, nil
}

// EconomicCalendar devuelve los eventos macro del rango puntuados por
// relevancia (> 0.5) para el ticker, ordenados de más a menos relevante.
func (c *Client) EconomicCalendar(ctx context.Context, ticker string, from, to time.Time) ([]ports.EconomicEvent, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("finnhub: api key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub: rate limiter: %w", err)
	}

	var out calendarResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":  from.Format("2006-01-02"),
			"to":    to.Format("2006-01-02"),
			"token": c.apiKey,
		}).
		SetResult(&out).
		Get("/calendar/economic")
	if err != nil {
		return nil, fmt.Errorf("finnhub: economic calendar: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finnhub: economic calendar: status %d", resp.StatusCode())
	}

	profile := c.companyProfile(ctx, ticker)
	companyContext := fmt.Sprintf("Company: %s, Industry: %s, Country: %s",
		profile.Name, profile.Industry, profile.Country)

	var relevant []ports.EconomicEvent
	for _, ev := range out.EconomicCalendar {
		when, err := time.Parse("2006-01-02 15:04:05", ev.Time)
		if err != nil {
			continue
		}

		eventText := fmt.Sprintf("Event: %s, Importance: %s, Country: %s", ev.Event, ev.Impact, ev.Country)
		score, err := c.relevance.ScoreEventRelevance(ctx, eventText, ticker, companyContext)
		if err != nil {
			slog.Debug("event relevance scoring failed", "event", ev.Event, "err", err)
			continue
		}
		if score <= relevanceThreshold {
			continue
		}

		relevant = append(relevant, ports.EconomicEvent{
			Event:     ev.Event,
			Country:   ev.Country,
			Impact:    strings.ToLower(ev.Impact),
			Datetime:  when,
			Relevance: score,
		})
	}

	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].Relevance > relevant[j].Relevance
	})

	slog.Debug("economic calendar fetched",
		"ticker", ticker, "total", len(out.EconomicCalendar), "relevant", len(relevant))
	return relevant, nil
}

// companyNews recupera las noticias específicas de la empresa de los
// últimos 3 días.
func (c *Client) companyNews(ctx context.Context, ticker string) ([]ports.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub: rate limiter: %w", err)
	}

	now := c.now()
	var raw []newsItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"from":   now.Add(-companyNewsWindow).Format("2006-01-02"),
			"to":     now.Format("2006-01-02"),
			"token":  c.apiKey,
		}).
		SetResult(&raw).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("finnhub: company news %s: %w", ticker, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finnhub: company news %s: status %d", ticker, resp.StatusCode())
	}

	return toNewsItems(raw, "company_specific"), nil
}

// generalNews recupera noticias generales de mercado y se queda con las
// que mencionan el ticker o el nombre de la empresa.
func (c *Client) generalNews(ctx context.Context, ticker string, profile companyProfile) ([]ports.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub: rate limiter: %w", err)
	}

	var raw []newsItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": "general",
			"token":    c.apiKey,
		}).
		SetResult(&raw).
		Get("/news")
	if err != nil {
		return nil, fmt.Errorf("finnhub: general news: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finnhub: general news: status %d", resp.StatusCode())
	}

	cutoff := c.now().Add(-companyNewsWindow)
	var filtered []newsItem
	for _, item := range raw {
		if time.Unix(item.Datetime, 0).Before(cutoff) {
			continue
		}
		if relevantToTicker(item, ticker, profile.Name) {
			filtered = append(filtered, item)
		}
	}
	return toNewsItems(filtered, "general_market"), nil
}

// companyProfile es best-effort: sin perfil seguimos con el ticker solo.
func (c *Client) companyProfile(ctx context.Context, ticker string) companyProfile {
	if err := c.limiter.Wait(ctx); err != nil {
		return companyProfile{}
	}

	var profile companyProfile
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": ticker, "token": c.apiKey}).
		SetResult(&profile).
		Get("/stock/profile2")
	if err != nil || resp.IsError() {
		slog.Debug("company profile fetch failed", "ticker", ticker)
		return companyProfile{}
	}
	return profile
}

// relevantToTicker aplica el filtro textual: mención directa del ticker
// o de las primeras palabras significativas del nombre de la empresa.
func relevantToTicker(item newsItem, ticker, companyName string) bool {
	text := strings.ToUpper(item.Headline + " " + item.Summary)

	if strings.Contains(text, strings.ToUpper(ticker)) {
		return true
	}

	name := strings.ToUpper(companyName)
	if len(name) <= 3 {
		return false
	}
	significant := 0
	for _, word := range strings.Fields(name) {
		if len(word) <= 3 {
			continue
		}
		if strings.Contains(text, word) {
			return true
		}
		significant++
		if significant >= 3 {
			break
		}
	}
	return false
}

func toNewsItems(raw []newsItem, source string) []ports.NewsItem {
	items := make([]ports.NewsItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, ports.NewsItem{
			Headline: r.Headline,
			Summary:  r.Summary,
			Datetime: time.Unix(r.Datetime, 0),
			Source:   source,
		})
	}
	return items
}
