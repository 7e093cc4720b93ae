package adapter

import (
	"context"

	"wildfire-dashboard/internal/domain/model"
)

// ColumnarStore reads and writes partitioned fire data. Locators are paths
// relative to the store root.
type ColumnarStore interface {
	// ReadPartition loads one partition. Columns nil means all columns; filter
	// is applied while reading.
	ReadPartition(ctx context.Context, locator string, columns []string, filter model.Filter) ([]model.FireRecord, error)
	WritePartition(ctx context.Context, rows []model.FireRecord, locator string) error
	Exists(locator string) bool
}
