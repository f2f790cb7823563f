package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/quant-sim/internal/models"
)

// CreatePriceBar inserts or updates one day of OHLCV data
func (db *DB) CreatePriceBar(p *models.PriceBar) error {
	query := `
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
		RETURNING id
	`
	err := db.conn.QueryRow(query,
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, time.Now(),
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create price bar: %w", err)
	}
	return nil
}

// CreatePriceBarBatch inserts multiple price bars in one transaction
func (db *DB) CreatePriceBarBatch(bars []*models.PriceBar) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range bars {
		if _, err := stmt.Exec(p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, now); err != nil {
			return fmt.Errorf("failed to insert price bar for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price bars: %w", err)
	}
	return nil
}

// GetSeries retrieves the OHLCV series for a symbol in a date range,
// chronologically ascending. Implements the backtest engine's series
// source contract.
func (db *DB) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query price series: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.ID, &b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetLatestClose returns the most recent closing price for a symbol
func (db *DB) GetLatestClose(symbol string) (*models.PriceBar, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	var b models.PriceBar
	err := db.conn.QueryRow(query, symbol).Scan(
		&b.ID, &b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest close for %s: %w", symbol, err)
	}
	return &b, nil
}
