package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/relbot/internal/adapters/storage"
	"github.com/alejandrodnm/relbot/internal/domain"
)

func makeOutcome(ticker string, executed bool) domain.Outcome {
	sig := domain.Signal{
		Ticker:     ticker,
		Direction:  domain.DirectionBuy,
		EntryPrice: 150,
		StopLoss:   145,
		TakeProfit: 160,
		Strength:   0.8,
		Confidence: 0.9,
		Timeframe:  "15m",
	}
	bd := domain.Aggregate(
		domain.Computed(0.8), domain.Computed(0.7),
		domain.Computed(0.6), domain.Computed(0.9),
		domain.DefaultWeights(),
	)

	out := domain.Outcome{Signal: sig, Breakdown: bd}
	if executed {
		out.Intent = &domain.OrderIntent{Ticker: ticker, Action: domain.DirectionBuy, PositionSize: 100}
		out.Result = domain.OrderResult{
			Success:   true,
			OrderID:   "ord-" + ticker,
			Ticker:    ticker,
			Action:    domain.DirectionBuy,
			Shares:    100,
			FillPrice: 150.5,
			Status:    domain.StatusExecuted,
		}
	} else {
		out.Rejection = &domain.RejectionRecord{Ticker: ticker, Reason: "insufficient reliability", Reliability: bd.Reliability}
		out.Result = domain.OrderResult{Success: false, Ticker: ticker, Status: domain.StatusCancelled}
	}
	return out
}

func TestSQLiteStore_RecordAndRead(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RecordOutcome(context.Background(), makeOutcome("AAPL", true)))
	require.NoError(t, db.RecordOutcome(context.Background(), makeOutcome("MSFT", false)))

	recent, err := db.RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	byTicker := map[string]storage.AuditedSignal{}
	for _, s := range recent {
		byTicker[s.Ticker] = s
	}

	aapl := byTicker["AAPL"]
	assert.True(t, aapl.Accepted)
	assert.True(t, aapl.Executed)
	assert.InDelta(t, 0.745, aapl.Reliability, 1e-9)

	msft := byTicker["MSFT"]
	assert.False(t, msft.Accepted)
	assert.False(t, msft.Executed)
	assert.Equal(t, "insufficient reliability", msft.Detail)
}

func TestSQLiteStore_RecentSignalsLimit(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordOutcome(context.Background(), makeOutcome("AAPL", false)))
	}

	recent, err := db.RecentSignals(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestSQLiteStore_RejectedSignalOpensNoPosition(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RecordOutcome(context.Background(), makeOutcome("MSFT", false)))
	require.NoError(t, db.RecordOutcome(context.Background(), makeOutcome("AAPL", true)))

	// Solo la señal ejecutada aparece como posición
	recent, err := db.RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	executed := 0
	for _, s := range recent {
		if s.Executed {
			executed++
		}
	}
	assert.Equal(t, 1, executed)
}
