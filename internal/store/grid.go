// Package store is the data access layer over a spreadsheet-like grid.
//
// A Grid offers only whole-sheet reads and single-row writes. Nothing here
// locks or compares-and-swaps: two requests updating the same row race and the
// last writer wins. Callers must not assume more.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrSheetNotFound is returned by a Grid when the named sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Grid is raw cell storage addressed by sheet name and 1-based row index.
type Grid interface {
	// Sheets lists sheet names.
	Sheets(ctx context.Context) ([]string, error)
	// AddSheet creates an empty sheet.
	AddSheet(ctx context.Context, sheet string) error
	// Header returns row 1 of sheet.
	Header(ctx context.Context, sheet string) ([]string, error)
	// Read returns every row of sheet, header included. Rows may be jagged.
	Read(ctx context.Context, sheet string) ([][]string, error)
	// AppendRow writes values after the last non-empty row.
	AppendRow(ctx context.Context, sheet string, values []string) error
	// WriteRow overwrites row (1-based, header is row 1).
	WriteRow(ctx context.Context, sheet string, row int, values []string) error
	// Replace overwrites the whole sheet with rows.
	Replace(ctx context.Context, sheet string, rows [][]string) error
}

// MemoryGrid is an in-process Grid used in tests and local development.
// The mutex only guards the maps; it gives no stronger guarantee than a
// remote spreadsheet would.
type MemoryGrid struct {
	mu     sync.Mutex
	order  []string
	sheets map[string][][]string
}

// NewMemoryGrid returns an empty grid.
func NewMemoryGrid() *MemoryGrid {
	return &MemoryGrid{sheets: make(map[string][][]string)}
}

// NewSchemaMemoryGrid returns a grid holding every application sheet with its
// header row and no data.
func NewSchemaMemoryGrid() *MemoryGrid {
	g := NewMemoryGrid()
	for _, sh := range Schema() {
		g.order = append(g.order, sh.Name)
		g.sheets[sh.Name] = [][]string{append([]string(nil), sh.Columns...)}
	}
	return g
}

func (g *MemoryGrid) Sheets(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...), nil
}

func (g *MemoryGrid) AddSheet(ctx context.Context, sheet string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sheets[sheet]; ok {
		return nil
	}
	g.sheets[sheet] = nil
	g.order = append(g.order, sheet)
	return nil
}

func (g *MemoryGrid) Header(ctx context.Context, sheet string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return nil, ErrSheetNotFound
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return append([]string(nil), rows[0]...), nil
}

func (g *MemoryGrid) Read(ctx context.Context, sheet string) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return nil, ErrSheetNotFound
	}
	return copyRows(rows), nil
}

func (g *MemoryGrid) AppendRow(ctx context.Context, sheet string, values []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	g.sheets[sheet] = append(rows, append([]string(nil), values...))
	return nil
}

func (g *MemoryGrid) WriteRow(ctx context.Context, sheet string, row int, values []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows, ok := g.sheets[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	for len(rows) < row {
		rows = append(rows, nil)
	}
	rows[row-1] = append([]string(nil), values...)
	g.sheets[sheet] = rows
	return nil
}

func (g *MemoryGrid) Replace(ctx context.Context, sheet string, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sheets[sheet]; !ok {
		return ErrSheetNotFound
	}
	g.sheets[sheet] = copyRows(rows)
	return nil
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
