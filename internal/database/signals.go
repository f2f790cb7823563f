package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/quant-sim/internal/models"
)

// AppendSignal inserts a generated signal for audit
func (db *DB) AppendSignal(s *models.Signal) error {
	query := `
		INSERT INTO trading_signals (
			event_id, symbol, side, price, quantity, confidence, strategy, reason, signal_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	_, err := db.conn.Exec(query,
		s.ID, s.Symbol, s.Side, s.Price, s.Quantity, s.Confidence, s.Strategy, s.Reason, s.Timestamp, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append signal: %w", err)
	}
	return nil
}

// GetRecentSignals retrieves the most recent signals across symbols
func (db *DB) GetRecentSignals(limit int) ([]*models.Signal, error) {
	query := signalSelect + `
		ORDER BY signal_at DESC
		LIMIT $1
	`
	return db.scanSignals(db.conn.Query(query, limit))
}

// GetSignalsBySymbol retrieves recent signals for one symbol
func (db *DB) GetSignalsBySymbol(symbol string, limit int) ([]*models.Signal, error) {
	query := signalSelect + `
		WHERE symbol = $1
		ORDER BY signal_at DESC
		LIMIT $2
	`
	return db.scanSignals(db.conn.Query(query, symbol, limit))
}

const signalSelect = `
		SELECT event_id, symbol, side, price, quantity, confidence, strategy, reason, signal_at, created_at
		FROM trading_signals
`

func (db *DB) scanSignals(rows *sql.Rows, err error) ([]*models.Signal, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		var s models.Signal
		var eventID, strategy, reason sql.NullString

		if err := rows.Scan(&eventID, &s.Symbol, &s.Side, &s.Price, &s.Quantity, &s.Confidence, &strategy, &reason, &s.Timestamp, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		if eventID.Valid {
			s.ID = eventID.String
		}
		if strategy.Valid {
			s.Strategy = strategy.String
		}
		if reason.Valid {
			s.Reason = reason.String
		}
		signals = append(signals, &s)
	}
	return signals, rows.Err()
}
