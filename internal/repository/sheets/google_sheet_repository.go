package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/hotelerp/internal/config"
)

// valuesAPI is the slice of the Sheets values API the report sheet needs.
type valuesAPI interface {
	Append(ctx context.Context, sheetRange string, rows [][]interface{}) error
	Get(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

type googleValues struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

func (g googleValues) Append(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g googleValues) Get(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// ReportSheet appends report tables to tabs of the reports spreadsheet. The header row is
// written the first time a table lands on an empty tab.
type ReportSheet struct {
	values valuesAPI
	logger *zap.Logger

	mu     sync.Mutex
	headed map[string]bool
}

// NewReportSheet builds a report sheet backed by the Google Sheets API.
func NewReportSheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*ReportSheet, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newReportSheet(googleValues{service: service, spreadsheetID: cfg.SpreadsheetID}, logger), nil
}

func newReportSheet(values valuesAPI, logger *zap.Logger) *ReportSheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportSheet{values: values, logger: logger, headed: make(map[string]bool)}
}

// AppendTable appends rows below the last filled row of sheetRange, preceded by header
// when the tab has no header yet.
func (r *ReportSheet) AppendTable(ctx context.Context, sheetRange string, header []interface{}, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	first, err := headerRange(sheetRange)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload := rows
	if len(header) > 0 && !r.headed[sheetRange] {
		existing, err := r.values.Get(ctx, first)
		if err != nil {
			return fmt.Errorf("read header %s: %w", first, err)
		}
		if len(existing) == 0 || len(existing[0]) == 0 {
			payload = append([][]interface{}{header}, rows...)
		}
	}

	if err := r.values.Append(ctx, sheetRange, payload); err != nil {
		return fmt.Errorf("append %d rows into range %s: %w", len(payload), sheetRange, err)
	}
	r.headed[sheetRange] = true

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(payload)))
	return nil
}

// headerRange turns an A1 column range such as "Leakage!A:G" into its first row, "Leakage!A1:G1".
func headerRange(sheetRange string) (string, error) {
	if sheetRange == "" {
		return "", errors.New("sheetRange must not be empty")
	}
	tab, cols, ok := strings.Cut(sheetRange, "!")
	if !ok {
		tab, cols = "", sheetRange
	}
	from, to, _ := strings.Cut(cols, ":")
	from = strings.TrimRight(from, "0123456789")
	to = strings.TrimRight(to, "0123456789")
	if from == "" {
		return "", fmt.Errorf("invalid range %q", sheetRange)
	}

	first := from + "1"
	if to != "" {
		first += ":" + to + "1"
	}
	if tab != "" {
		first = tab + "!" + first
	}
	return first, nil
}
