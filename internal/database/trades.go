package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quant-sim/internal/models"
)

// AppendTrade inserts an executed fill. Trade records are append-only.
func (db *DB) AppendTrade(t *models.Trade) error {
	query := `
		INSERT INTO trades (
			event_id, symbol, side, quantity, requested_quantity, price,
			amount, commission, stamp_tax, profit_loss, cash_after,
			strategy, reason, executed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	now := time.Now()
	executedAt := t.ExecutedAt
	if executedAt.IsZero() {
		executedAt = now
	}

	var pnl interface{}
	if t.ProfitLoss != nil {
		pnl = t.ProfitLoss.String()
	}

	err := db.conn.QueryRow(query,
		t.EventID, t.Symbol, t.Side, t.Quantity, t.RequestedQuantity, t.Price,
		t.Amount, t.Commission, t.StampTax, pnl, t.CashAfter,
		t.Strategy, t.Reason, executedAt, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to append trade: %w", err)
	}
	t.ExecutedAt = executedAt
	t.CreatedAt = now
	return nil
}

// GetTradesBySymbol retrieves recent trades for a symbol
func (db *DB) GetTradesBySymbol(symbol string, limit int) ([]*models.Trade, error) {
	query := tradeSelect + `
		WHERE symbol = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`
	return db.scanTrades(db.conn.Query(query, symbol, limit))
}

// GetRecentTrades retrieves the most recent trades across all symbols
func (db *DB) GetRecentTrades(limit int) ([]*models.Trade, error) {
	query := tradeSelect + `
		ORDER BY executed_at DESC
		LIMIT $1
	`
	return db.scanTrades(db.conn.Query(query, limit))
}

// GetTradesByDateRange retrieves trades executed within a date range
func (db *DB) GetTradesByDateRange(start, end time.Time) ([]*models.Trade, error) {
	query := tradeSelect + `
		WHERE executed_at >= $1 AND executed_at <= $2
		ORDER BY executed_at ASC
	`
	return db.scanTrades(db.conn.Query(query, start, end))
}

const tradeSelect = `
		SELECT id, event_id, symbol, side, quantity, requested_quantity, price,
		       amount, commission, stamp_tax, profit_loss, cash_after,
		       strategy, reason, executed_at, created_at
		FROM trades
`

func (db *DB) scanTrades(rows *sql.Rows, err error) ([]*models.Trade, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var eventID, strategy, reason sql.NullString
		var pnl sql.NullString

		err := rows.Scan(
			&t.ID, &eventID, &t.Symbol, &t.Side, &t.Quantity, &t.RequestedQuantity, &t.Price,
			&t.Amount, &t.Commission, &t.StampTax, &pnl, &t.CashAfter,
			&strategy, &reason, &t.ExecutedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if eventID.Valid {
			t.EventID = eventID.String
		}
		if strategy.Valid {
			t.Strategy = strategy.String
		}
		if reason.Valid {
			t.Reason = reason.String
		}
		if pnl.Valid {
			value, err := decimal.NewFromString(pnl.String)
			if err != nil {
				return nil, fmt.Errorf("invalid profit_loss value %q: %w", pnl.String, err)
			}
			t.ProfitLoss = &value
		}

		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
