package storage

// sqlite.go: audit log persistente de señales procesadas.
//
// Estrategia:
//   - `signals`: UNA fila por señal procesada, con el breakdown completo
//     de reliability y el resultado de la orden. Es un log append-only.
//   - `positions`: una fila por posición abierta (señales ejecutadas).
//   - Prune automático al arrancar: signals > 30d. El histórico operativo
//     vive en memoria (RunHistory); esta DB es solo para post-mortem.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/relbot/internal/domain"
)

const schema = `
-- Una fila por señal procesada, append-only
CREATE TABLE IF NOT EXISTS signals (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    processed_at DATETIME NOT NULL,
    ticker       TEXT     NOT NULL,
    direction    TEXT     NOT NULL,
    entry_price  REAL     NOT NULL DEFAULT 0,
    stop_loss    REAL     NOT NULL DEFAULT 0,
    take_profit  REAL     NOT NULL DEFAULT 0,
    strength     REAL     NOT NULL DEFAULT 0,
    confidence   REAL     NOT NULL DEFAULT 0,
    timeframe    TEXT,
    probability  REAL     NOT NULL DEFAULT 0,
    plausibility REAL     NOT NULL DEFAULT 0,
    credibility  REAL     NOT NULL DEFAULT 0,
    possibility  REAL     NOT NULL DEFAULT 0,
    reliability  REAL     NOT NULL DEFAULT 0,
    accepted     INTEGER  NOT NULL DEFAULT 0,
    executed     INTEGER  NOT NULL DEFAULT 0,
    fail_reason  TEXT,
    detail       TEXT
);

-- Una fila por posición abierta
CREATE TABLE IF NOT EXISTS positions (
    id          TEXT PRIMARY KEY,
    opened_at   DATETIME NOT NULL,
    ticker      TEXT     NOT NULL,
    direction   TEXT     NOT NULL,
    entry_price REAL     NOT NULL DEFAULT 0,
    stop_loss   REAL     NOT NULL DEFAULT 0,
    take_profit REAL     NOT NULL DEFAULT 0,
    shares      REAL     NOT NULL DEFAULT 0,
    order_id    TEXT,
    reliability REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_signals_at     ON signals(processed_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_ticker ON signals(ticker);
CREATE INDEX IF NOT EXISTS idx_positions_at   ON positions(opened_at DESC);
`

// retentionSignals: las señales viejas no aportan nada al post-mortem.
const retentionSignals = 30 * 24 * time.Hour

// SQLiteStore implementa ports.AuditStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia señales antiguas.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// RecordOutcome persiste una señal procesada y, si abrió posición, la
// posición correspondiente. Una transacción por outcome.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, outcome domain.Outcome) error {
	now := time.Now().UTC()
	sig := outcome.Signal
	bd := outcome.Breakdown
	res := outcome.Result

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordOutcome: begin tx: %w", err)
	}
	defer tx.Rollback()

	accepted := 0
	if outcome.Accepted() {
		accepted = 1
	}
	executed := 0
	if res.Success {
		executed = 1
	}
	detail := res.Error
	if outcome.Rejection != nil {
		detail = outcome.Rejection.Reason
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO signals
			(processed_at, ticker, direction, entry_price, stop_loss, take_profit,
			 strength, confidence, timeframe,
			 probability, plausibility, credibility, possibility, reliability,
			 accepted, executed, fail_reason, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		now,
		sig.Ticker,
		string(sig.Direction),
		sig.EntryPrice,
		sig.StopLoss,
		sig.TakeProfit,
		sig.Strength,
		sig.Confidence,
		sig.EffectiveTimeframe(),
		bd.Probability.Value,
		bd.Plausibility.Value,
		bd.Credibility.Value,
		bd.Possibility.Value,
		bd.Reliability,
		accepted,
		executed,
		string(res.FailReason),
		detail,
	); err != nil {
		return fmt.Errorf("storage.RecordOutcome: insert signal: %w", err)
	}

	if res.Success {
		fillPrice := res.FillPrice
		if fillPrice <= 0 {
			fillPrice = sig.EntryPrice
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO positions
				(id, opened_at, ticker, direction, entry_price, stop_loss,
				 take_profit, shares, order_id, reliability)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			uuid.New().String(),
			now,
			sig.Ticker,
			string(sig.Direction),
			fillPrice,
			sig.StopLoss,
			sig.TakeProfit,
			res.Shares,
			res.OrderID,
			bd.Reliability,
		); err != nil {
			return fmt.Errorf("storage.RecordOutcome: insert position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.RecordOutcome: commit: %w", err)
	}
	return nil
}

// RecentSignals devuelve las últimas n señales auditadas, más reciente
// primero. Pensado para inspección manual post-mortem.
func (s *SQLiteStore) RecentSignals(ctx context.Context, n int) ([]AuditedSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT processed_at, ticker, direction, reliability, accepted, executed, fail_reason, detail
		FROM signals
		ORDER BY processed_at DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentSignals: query: %w", err)
	}
	defer rows.Close()

	var out []AuditedSignal
	for rows.Next() {
		var a AuditedSignal
		var processedAt string
		var accepted, executed int
		if err := rows.Scan(
			&processedAt, &a.Ticker, &a.Direction, &a.Reliability,
			&accepted, &executed, &a.FailReason, &a.Detail,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentSignals: scan row: %w", err)
		}
		a.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
		a.Accepted = accepted == 1
		a.Executed = executed == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

// AuditedSignal es la proyección de una fila de la tabla signals.
type AuditedSignal struct {
	ProcessedAt time.Time
	Ticker      string
	Direction   string
	Reliability float64
	Accepted    bool
	Executed    bool
	FailReason  string
	Detail      string
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld elimina señales antiguas para mantener la DB ligera.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionSignals)
	s.db.ExecContext(ctx, `DELETE FROM signals WHERE processed_at < ?`, cutoff)
}
