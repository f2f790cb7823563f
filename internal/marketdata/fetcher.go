// Package marketdata provides access to historical price series and
// the current-price quote cache used by the live trading loop.
package marketdata

import (
	"context"
	"time"

	"github.com/trogers1052/quant-sim/internal/models"
)

// Fetcher retrieves historical OHLCV series for a symbol. Series are
// chronologically ascending and may be empty; short series are a
// per-symbol condition for the caller, not an error here.
type Fetcher interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}
