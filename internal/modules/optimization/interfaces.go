package optimization

import (
	"context"
	"time"
)

// PriceSource provides cleaned, date-aligned price tables.
// Declared here rather than importing the marketdata module, so module
// dependencies stay one-way.
type PriceSource interface {
	GetPriceTable(ctx context.Context, symbols []string, start, end time.Time) (*PriceTable, error)
}
