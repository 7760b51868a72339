// Package sheets implements store.Grid on the Google Sheets API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"sheetshare.org/internal/store"
)

// Scope is the OAuth scope the service account needs.
const Scope = sheetsapi.SpreadsheetsScope

// Values are written RAW so ids, hashes and "true"/"false" flags are stored
// verbatim rather than coerced into numbers or booleans.
const valueInput = "RAW"

// Grid is a store.Grid backed by one spreadsheet.
type Grid struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

var _ store.Grid = (*Grid)(nil)

// New dials the Sheets API.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Grid, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Grid{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *Grid) Sheets(ctx context.Context) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}
	return names, nil
}

func (g *Grid) AddSheet(ctx context.Context, sheet string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: sheet},
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	return nil
}

func (g *Grid) Header(ctx context.Context, sheet string) ([]string, error) {
	rows, err := g.get(ctx, rangeOf(sheet, "1:1"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (g *Grid) Read(ctx context.Context, sheet string) ([][]string, error) {
	return g.get(ctx, quote(sheet))
}

func (g *Grid) AppendRow(ctx context.Context, sheet string, values []string) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(values)}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rangeOf(sheet, "A1"), vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (g *Grid) WriteRow(ctx context.Context, sheet string, row int, values []string) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(values)}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rangeOf(sheet, fmt.Sprintf("A%d", row)), vr).
		ValueInputOption(valueInput).
		Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (g *Grid) Replace(ctx context.Context, sheet string, rows [][]string) error {
	if _, err := g.svc.Spreadsheets.Values.Clear(g.spreadsheetID, quote(sheet), &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return mapError(err)
	}
	if len(rows) == 0 {
		return nil
	}
	cells := make([][]interface{}, len(rows))
	for i, r := range rows {
		cells[i] = toCells(r)
	}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rangeOf(sheet, "A1"), &sheetsapi.ValueRange{Values: cells}).
		ValueInputOption(valueInput).
		Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (g *Grid) get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out, nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func rangeOf(sheet, cells string) string {
	return quote(sheet) + "!" + cells
}

// mapError turns the API's "unable to parse range" reply for a missing tab
// into store.ErrSheetNotFound.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(gerr.Message), "unable to parse range") {
		return fmt.Errorf("%w: %s", store.ErrSheetNotFound, gerr.Message)
	}
	return fmt.Errorf("sheets api: %w", err)
}
