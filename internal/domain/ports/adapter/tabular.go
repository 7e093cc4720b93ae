package adapter

import "wildfire-dashboard/internal/domain/model"

// TableStore reads and writes the CSV exports by path.
type TableStore interface {
	ReadTable(path string) (*model.Table, error)
	WriteTable(path string, t *model.Table) error
}
