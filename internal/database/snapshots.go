package database

import (
	"fmt"
	"time"

	"github.com/trogers1052/quant-sim/internal/models"
)

// SaveSnapshot inserts one portfolio snapshot
func (db *DB) SaveSnapshot(s *models.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (
			date, total_value, cash, market_value, total_pnl, total_pnl_pct, position_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		s.Date, s.TotalValue, s.Cash, s.MarketValue, s.TotalPnl, s.TotalPnlPct, s.PositionCount, now,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.CreatedAt = now
	return nil
}

// GetSnapshotHistory retrieves snapshots from the last N days,
// chronologically ascending
func (db *DB) GetSnapshotHistory(days int) ([]*models.PortfolioSnapshot, error) {
	query := `
		SELECT id, date, total_value, cash, market_value, total_pnl, total_pnl_pct, position_count, created_at
		FROM portfolio_snapshots
		WHERE date >= $1
		ORDER BY date ASC
	`
	since := time.Now().AddDate(0, 0, -days)
	rows, err := db.conn.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.PortfolioSnapshot
	for rows.Next() {
		var s models.PortfolioSnapshot
		if err := rows.Scan(&s.ID, &s.Date, &s.TotalValue, &s.Cash, &s.MarketValue, &s.TotalPnl, &s.TotalPnlPct, &s.PositionCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

// GetLatestSnapshot retrieves the most recent snapshot
func (db *DB) GetLatestSnapshot() (*models.PortfolioSnapshot, error) {
	query := `
		SELECT id, date, total_value, cash, market_value, total_pnl, total_pnl_pct, position_count, created_at
		FROM portfolio_snapshots
		ORDER BY date DESC
		LIMIT 1
	`
	var s models.PortfolioSnapshot
	err := db.conn.QueryRow(query).Scan(
		&s.ID, &s.Date, &s.TotalValue, &s.Cash, &s.MarketValue, &s.TotalPnl, &s.TotalPnlPct, &s.PositionCount, &s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &s, nil
}
