package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/alejandrodnm/relbot/config"
	"github.com/alejandrodnm/relbot/internal/domain"
	"github.com/alejandrodnm/relbot/internal/pipeline"
)

// requiredFields is the wire contract with the strategy: a signal POST
// missing any of these is rejected before it reaches the pipeline.
var requiredFields = []string{
	"direction", "ticker", "entry_price", "stop_loss", "take_profit", "confidence", "strategy_signal",
}

// Server is the HTTP front door: it receives strategy signals, hands
// them to the pipeline and exposes the run state.
type Server struct {
	cfg      config.HTTPConfig
	pipeline *pipeline.Pipeline
	server   *http.Server
	started  time.Time
}

// NewServer builds the server around an already-wired pipeline.
func NewServer(cfg config.HTTPConfig, p *pipeline.Pipeline) *Server {
	return &Server{cfg: cfg, pipeline: p, started: time.Now()}
}

// Handler returns the routed handler. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/api/signal", s.handleSignal).Methods(http.MethodPost)
	router.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	router.Use(s.recoverMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})
	return c.Handler(router)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Addr())
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// signalRequest is the wire format sent by the strategy. Pointer fields
// distinguish absent from zero.
type signalRequest struct {
	Direction      *string  `json:"direction"`
	Ticker         *string  `json:"ticker"`
	EntryPrice     *float64 `json:"entry_price"`
	StopLoss       *float64 `json:"stop_loss"`
	TakeProfit     *float64 `json:"take_profit"`
	Confidence     *float64 `json:"confidence"`
	StrategySignal *float64 `json:"strategy_signal"`
	Timeframe      string   `json:"timeframe"`
}

func (r signalRequest) missing() []string {
	var m []string
	if r.Direction == nil || *r.Direction == "" {
		m = append(m, "direction")
	}
	if r.Ticker == nil || *r.Ticker == "" {
		m = append(m, "ticker")
	}
	if r.EntryPrice == nil {
		m = append(m, "entry_price")
	}
	if r.StopLoss == nil {
		m = append(m, "stop_loss")
	}
	if r.TakeProfit == nil {
		m = append(m, "take_profit")
	}
	if r.Confidence == nil {
		m = append(m, "confidence")
	}
	if r.StrategySignal == nil {
		m = append(m, "strategy_signal")
	}
	return m
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":           "invalid JSON body",
			"required_fields": requiredFields,
		})
		return
	}

	if missing := req.missing(); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":           "missing required fields",
			"missing_fields":  missing,
			"required_fields": requiredFields,
		})
		return
	}

	direction, ok := domain.ParseDirection(*req.Direction)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":           "direction must be BUY, SELL or HOLD",
			"required_fields": requiredFields,
		})
		return
	}

	sig := domain.Signal{
		Ticker:     *req.Ticker,
		Direction:  direction,
		EntryPrice: *req.EntryPrice,
		StopLoss:   *req.StopLoss,
		TakeProfit: *req.TakeProfit,
		Strength:   *req.StrategySignal,
		Confidence: *req.Confidence,
		Timeframe:  req.Timeframe,
		ReceivedAt: time.Now().UTC(),
	}

	slog.Info("signal received",
		"ticker", sig.Ticker,
		"direction", sig.Direction,
		"entry", sig.EntryPrice,
		"confidence", sig.Confidence,
		"strength", sig.Strength,
	)

	outcome := s.pipeline.Process(r.Context(), sig)

	// Rejections and execution failures are business outcomes, not
	// transport errors: both sides of the branch answer 200.
	if outcome.Result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":             true,
			"message":             "position opened",
			"reliability_score":   outcome.Breakdown.Reliability,
			"position_details":    positionDetails(outcome.Result),
			"reliability_details": breakdownDetails(outcome.Breakdown),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":             false,
		"message":             "signal rejected: " + outcome.Result.Error,
		"reliability_score":   outcome.Breakdown.Reliability,
		"reliability_details": breakdownDetails(outcome.Breakdown),
		"threshold":           s.pipeline.Gate().Threshold(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snap := s.pipeline.History().Snapshot(10)

	entries := make([]map[string]any, 0, len(snap.LastSignals))
	for _, e := range snap.LastSignals {
		entries = append(entries, map[string]any{
			"timestamp":           e.Timestamp,
			"ticker":              e.Ticker,
			"direction":           e.Direction,
			"entry_price":         e.EntryPrice,
			"stop_loss":           e.StopLoss,
			"take_profit":         e.TakeProfit,
			"reliability_score":   e.Reliability,
			"reliability_details": breakdownDetails(e.Breakdown),
			"position_opened":     e.PositionOpened,
		})
	}

	positions := make([]map[string]any, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		positions = append(positions, map[string]any{
			"id":                p.ID,
			"ticker":            p.Ticker,
			"direction":         p.Direction,
			"entry_price":       p.EntryPrice,
			"stop_loss":         p.StopLoss,
			"take_profit":       p.TakeProfit,
			"shares":            p.Shares,
			"order_id":          p.OrderID,
			"open_time":         p.OpenedAt,
			"reliability_score": p.Reliability,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"system_status":            "active",
		"total_signals_received":   snap.TotalSignals,
		"positions_opened":         snap.PositionsOpened,
		"positions_rejected":       snap.PositionsRejected,
		"active_positions":         len(snap.Positions),
		"last_signals":             entries,
		"active_positions_details": positions,
		"last_update":              snap.LastUpdate,
		"configuration": map[string]any{
			"reliability_threshold": s.pipeline.Gate().Threshold(),
			"weights":               s.pipeline.Calculator().Weights(),
		},
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "relbot signal execution server running",
		"status":    "active",
		"endpoints": []string{"/api/signal", "/api/state"},
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// recoverMiddleware is the outermost boundary for unexpected errors:
// anything escaping the handlers is logged and answered as a generic
// 500 instead of killing the process.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panicked", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"error": "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func positionDetails(res domain.OrderResult) map[string]any {
	return map[string]any{
		"order_id":    res.OrderID,
		"ticker":      res.Ticker,
		"action":      res.Action,
		"shares":      res.Shares,
		"fill_price":  res.FillPrice,
		"total_value": res.TotalValue,
		"status":      res.Status,
		"timestamp":   res.Timestamp,
	}
}

func breakdownDetails(bd domain.Breakdown) map[string]any {
	return map[string]any{
		"probability":  bd.Probability.Value,
		"plausibility": bd.Plausibility.Value,
		"credibility":  bd.Credibility.Value,
		"possibility":  bd.Possibility.Value,
		"reliability":  bd.Reliability,
		"weights":      bd.Weights,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}
