package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client puntúa texto con un modelo de chat OpenAI-compatible (DeepSeek,
// OpenAI, etc). Implementa ports.SentimentModel.
//
// Los prompts piden un único número; la respuesta se parsea con
// ParseFloat y cualquier desviación del contrato es un error, nunca un
// valor inventado.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient crea el cliente contra el base URL dado (sin /chat/completions).
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(apiKey).
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		model: model,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const sentimentSystemPrompt = `You are a financial sentiment analyst.
Given a news headline and summary about a company, answer with a single
number between -1.0 (very negative for the stock) and 1.0 (very
positive). Answer ONLY with the number.`

const relevanceSystemPrompt = `You are a financial analyst. Given an
economic calendar event and a company, estimate how relevant the event
is for that company's stock price, from 0.0 (irrelevant) to 1.0
(directly impactful). Answer ONLY with the number.`

// ScoreSentiment devuelve el sentiment del texto en [-1, 1] respecto
// al ticker dado.
func (c *Client) ScoreSentiment(ctx context.Context, text, ticker string) (float64, error) {
	prompt := fmt.Sprintf("Ticker: %s\n%s", ticker, text)
	raw, err := c.complete(ctx, sentimentSystemPrompt, prompt)
	if err != nil {
		return 0, err
	}
	score, err := parseScore(raw)
	if err != nil {
		return 0, err
	}
	if score < -1 || score > 1 {
		return 0, fmt.Errorf("llm: sentiment %.3f out of [-1,1]", score)
	}
	return score, nil
}

// ScoreEventRelevance devuelve la relevancia del evento para el ticker
// en [0, 1].
func (c *Client) ScoreEventRelevance(ctx context.Context, event, ticker, companyContext string) (float64, error) {
	prompt := fmt.Sprintf("%s\nTicker: %s\n%s", event, ticker, companyContext)
	raw, err := c.complete(ctx, relevanceSystemPrompt, prompt)
	if err != nil {
		return 0, err
	}
	score, err := parseScore(raw)
	if err != nil {
		return 0, err
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("llm: relevance %.3f out of [0,1]", score)
	}
	return score, nil
}

// complete hace una llamada chat/completions y devuelve el contenido de
// la primera choice.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: 0,
			MaxTokens:   10,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("llm: chat completion: %s", out.Error.Message)
		}
		return "", fmt.Errorf("llm: chat completion: status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

// parseScore tolera respuestas tipo "0.7" o "Score: 0.7" quedándose con
// el primer token parseable.
func parseScore(raw string) (float64, error) {
	for _, token := range strings.Fields(strings.TrimSpace(raw)) {
		token = strings.Trim(token, ":,")
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("llm: unparseable score %q", raw)
}
