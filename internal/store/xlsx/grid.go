// Package xlsx implements store.Grid on a local .xlsx workbook. It serves
// offline development and demos where no Google spreadsheet is available.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"sheetshare.org/internal/store"
)

// Grid is a store.Grid persisted to one workbook file. Every write saves the
// whole file.
type Grid struct {
	mu   sync.Mutex
	path string
	f    *excelize.File
}

var _ store.Grid = (*Grid)(nil)

// Open loads path, or starts an empty workbook when the file does not exist.
func Open(path string) (*Grid, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
	} else if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Grid{path: path, f: f}, nil
}

// Close releases the workbook.
func (g *Grid) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.f.Close()
}

func (g *Grid) Sheets(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.f.GetSheetList(), nil
}

func (g *Grid) AddSheet(ctx context.Context, sheet string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.exists(sheet) {
		return nil
	}
	if _, err := g.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	return g.save()
}

func (g *Grid) Header(ctx context.Context, sheet string) ([]string, error) {
	rows, err := g.Read(ctx, sheet)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (g *Grid) Read(ctx context.Context, sheet string) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return nil, store.ErrSheetNotFound
	}
	rows, err := g.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (g *Grid) AppendRow(ctx context.Context, sheet string, values []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return store.ErrSheetNotFound
	}
	rows, err := g.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if err := g.writeRow(sheet, len(rows)+1, values); err != nil {
		return err
	}
	return g.save()
}

func (g *Grid) WriteRow(ctx context.Context, sheet string, row int, values []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return store.ErrSheetNotFound
	}
	if err := g.writeRow(sheet, row, values); err != nil {
		return err
	}
	return g.save()
}

func (g *Grid) Replace(ctx context.Context, sheet string, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return store.ErrSheetNotFound
	}
	existing, err := g.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	for i := len(existing); i >= 1; i-- {
		if err := g.f.RemoveRow(sheet, i); err != nil {
			return fmt.Errorf("clear sheet %s: %w", sheet, err)
		}
	}
	for i, values := range rows {
		if err := g.writeRow(sheet, i+1, values); err != nil {
			return err
		}
	}
	return g.save()
}

func (g *Grid) writeRow(sheet string, row int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := g.f.SetCellStr(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func (g *Grid) exists(sheet string) bool {
	idx, err := g.f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func (g *Grid) save() error {
	if err := g.f.SaveAs(g.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", g.path, err)
	}
	return nil
}
