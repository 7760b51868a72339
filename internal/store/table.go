package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRowNotFound is returned by Table.Put when no row matches the key.
var ErrRowNotFound = errors.New("row not found")

// Row is one data row keyed by header name. Missing cells read as "".
type Row map[string]string

// Table addresses a sheet by header name. Row 1 is the header; column order
// is irrelevant to callers.
type Table struct {
	grid  Grid
	sheet string
}

// NewTable binds a sheet of grid.
func NewTable(grid Grid, sheet string) *Table {
	return &Table{grid: grid, sheet: sheet}
}

// Name returns the sheet name.
func (t *Table) Name() string { return t.sheet }

type indexedRow struct {
	index int
	row   Row
}

func (t *Table) scan(ctx context.Context) ([]string, []indexedRow, error) {
	raw, err := t.grid.Read(ctx, t.sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", t.sheet, err)
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}
	header := normalizeHeader(raw[0])
	rows := make([]indexedRow, 0, len(raw)-1)
	for i, values := range raw[1:] {
		if isBlank(values) {
			continue
		}
		rows = append(rows, indexedRow{index: i + 2, row: toRow(header, values)})
	}
	return header, rows, nil
}

// All returns every non-blank data row.
func (t *Table) All(ctx context.Context) ([]Row, error) {
	_, rows, err := t.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out, nil
}

// Find returns the first row whose column equals value.
func (t *Table) Find(ctx context.Context, column, value string) (Row, bool, error) {
	_, rows, err := t.scan(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, r := range rows {
		if r.row[column] == value {
			return r.row, true, nil
		}
	}
	return nil, false, nil
}

// Append writes row as a new line, ordering values by the current header.
// Keys with no matching column are dropped.
func (t *Table) Append(ctx context.Context, row Row) error {
	header, err := t.grid.Header(ctx, t.sheet)
	if err != nil {
		return fmt.Errorf("read %s header: %w", t.sheet, err)
	}
	header = normalizeHeader(header)
	if len(header) == 0 {
		return fmt.Errorf("sheet %s has no header row", t.sheet)
	}
	if err := t.grid.AppendRow(ctx, t.sheet, fromRow(header, row)); err != nil {
		return fmt.Errorf("append %s: %w", t.sheet, err)
	}
	return nil
}

// Put merges patch into the first row whose column equals value and writes the
// merged row back. This is a read-modify-write without any concurrency
// control: a concurrent Put on the same row may be silently overwritten.
func (t *Table) Put(ctx context.Context, column, value string, patch Row) (Row, error) {
	header, rows, err := t.scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.row[column] != value {
			continue
		}
		merged := make(Row, len(r.row)+len(patch))
		for k, v := range r.row {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		if err := t.grid.WriteRow(ctx, t.sheet, r.index, fromRow(header, merged)); err != nil {
			return nil, fmt.Errorf("update %s: %w", t.sheet, err)
		}
		return toRow(header, fromRow(header, merged)), nil
	}
	return nil, fmt.Errorf("%w: %s %s=%s", ErrRowNotFound, t.sheet, column, value)
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func toRow(header, values []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if i < len(values) {
			row[h] = values[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

func fromRow(header []string, row Row) []string {
	values := make([]string, len(header))
	for i, h := range header {
		values[i] = row[h]
	}
	return values
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
