// Package sink writes normalized rows into the destination spreadsheet.
package sink

import "context"

// CellUpdate addresses a single cell by zero-based row and column.
type CellUpdate struct {
	Row   int
	Col   int
	Value any
}

// Sink is the append-rows / update-cells contract the intake controller
// writes through. The spreadsheet itself is externally owned.
type Sink interface {
	// Append adds one row to tab, creating the tab and its header row
	// (when headers is non-nil and the tab is blank) as needed.
	Append(ctx context.Context, sheetID, tab string, headers []string, values []any) error

	// AppendObjects adds legacy row objects, aligning columns to the
	// tab's existing header row.
	AppendObjects(ctx context.Context, sheetID, tab string, rows []map[string]any) error

	// UpdateCells applies legacy point updates.
	UpdateCells(ctx context.Context, sheetID, tab string, updates []CellUpdate) error
}
