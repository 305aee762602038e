package storage

// sqlite.go — journal de ticks: auditoría, no estado de estrategia.
//
// Cada tick con cotización emitida se persiste como UNA fila: mid, indicadores,
// spreads finales y precios de las órdenes. Los decimales se guardan como TEXT
// para no perder precisión; los indicadores como REAL (son float64 de origen).
// Prune automático al arrancar: ticks con más de 30 días se eliminan.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

const schema = `
-- Una fila por tick con cotización emitida
CREATE TABLE IF NOT EXISTS ticks (
    id           TEXT PRIMARY KEY,
    trading_pair TEXT     NOT NULL,
    ticked_at    DATETIME NOT NULL,
    mid          TEXT     NOT NULL,
    ema          REAL     NOT NULL DEFAULT 0,
    rsi          REAL     NOT NULL DEFAULT 0,
    bb_upper     REAL     NOT NULL DEFAULT 0,
    bb_lower     REAL     NOT NULL DEFAULT 0,
    bid_spread   TEXT     NOT NULL,
    ask_spread   TEXT     NOT NULL,
    bid_price    TEXT     NOT NULL,
    ask_price    TEXT     NOT NULL,
    skewed       INTEGER  NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ticks_at   ON ticks(ticked_at DESC);
CREATE INDEX IF NOT EXISTS idx_ticks_pair ON ticks(trading_pair);
`

// retentionTicks — un journal es histórico operativo, no un data lake.
const retentionTicks = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia ticks antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveTick persiste el registro de un tick con cotización emitida.
func (s *SQLiteStorage) SaveTick(ctx context.Context, tick domain.TickRecord) error {
	skewed := 0
	if tick.Skewed {
		skewed = 1
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO ticks
			(id, trading_pair, ticked_at, mid, ema, rsi, bb_upper, bb_lower,
			 bid_spread, ask_spread, bid_price, ask_price, skewed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tick.ID,
		tick.TradingPair,
		tick.At.UTC(),
		tick.Mid.String(),
		tick.Indicators.EMA,
		tick.Indicators.RSI,
		tick.Indicators.Upper,
		tick.Indicators.Lower,
		tick.BidSpread.String(),
		tick.AskSpread.String(),
		tick.BidPrice.String(),
		tick.AskPrice.String(),
		skewed,
	); err != nil {
		return fmt.Errorf("storage.SaveTick: insert %s: %w", tick.ID, err)
	}
	return nil
}

// GetHistory devuelve los ticks cuyo ticked_at está en el rango dado,
// ordenados del más antiguo al más reciente.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.TickRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trading_pair, ticked_at, mid, ema, rsi, bb_upper, bb_lower,
		       bid_spread, ask_spread, bid_price, ask_price, skewed
		FROM ticks
		WHERE ticked_at BETWEEN ? AND ?
		ORDER BY ticked_at ASC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var ticks []domain.TickRecord
	for rows.Next() {
		var tick domain.TickRecord
		var tickedAt time.Time
		var mid, bidSpread, askSpread, bidPrice, askPrice string
		var skewed int

		if err := rows.Scan(
			&tick.ID,
			&tick.TradingPair,
			&tickedAt,
			&mid,
			&tick.Indicators.EMA,
			&tick.Indicators.RSI,
			&tick.Indicators.Upper,
			&tick.Indicators.Lower,
			&bidSpread,
			&askSpread,
			&bidPrice,
			&askPrice,
			&skewed,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		tick.At = tickedAt
		tick.Skewed = skewed == 1
		if tick.Mid, err = parseDecimal(mid); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: tick %s: %w", tick.ID, err)
		}
		if tick.BidSpread, err = parseDecimal(bidSpread); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: tick %s: %w", tick.ID, err)
		}
		if tick.AskSpread, err = parseDecimal(askSpread); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: tick %s: %w", tick.ID, err)
		}
		if tick.BidPrice, err = parseDecimal(bidPrice); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: tick %s: %w", tick.ID, err)
		}
		if tick.AskPrice, err = parseDecimal(askPrice); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: tick %s: %w", tick.ID, err)
		}
		ticks = append(ticks, tick)
	}

	return ticks, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina ticks antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionTicks)
	s.db.ExecContext(ctx, `DELETE FROM ticks WHERE ticked_at < ?`, cutoff)
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	return d, nil
}
