package googlesheets

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Config struct {
	CredentialsJSON string
	CredentialsFile string
	SpreadsheetID   string
	Range           string
}

// Enabled reports whether a spreadsheet and some credentials are configured.
func (c Config) Enabled() bool {
	return c.SpreadsheetID != "" && (c.CredentialsJSON != "" || c.CredentialsFile != "")
}

type appendFunc func(ctx context.Context, spreadsheetID, writeRange string, values *sheets.ValueRange) (*sheets.AppendValuesResponse, error)

// Exporter appends rows below the existing content of one spreadsheet range.
type Exporter struct {
	appendValues  appendFunc
	spreadsheetID string
	writeRange    string
	logger        *zap.Logger
}

func NewExporter(ctx context.Context, cfg Config, logger *zap.Logger) (*Exporter, error) {
	credentialsJSON := []byte(cfg.CredentialsJSON)
	if len(credentialsJSON) == 0 {
		logger.Info("Using Google credentials from file", zap.String("path", cfg.CredentialsFile))
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read Google credentials file: %w", err)
		}
		credentialsJSON = b
	}

	credentials, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to load Google credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, credentials.TokenSource)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Sheets client: %w", err)
	}

	return newExporter(func(ctx context.Context, spreadsheetID, writeRange string, values *sheets.ValueRange) (*sheets.AppendValuesResponse, error) {
		return sheetsService.Spreadsheets.Values.Append(spreadsheetID, writeRange, values).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
	}, cfg, logger), nil
}

func newExporter(fn appendFunc, cfg Config, logger *zap.Logger) *Exporter {
	writeRange := cfg.Range
	if writeRange == "" {
		writeRange = "A1:H1"
	}
	return &Exporter{appendValues: fn, spreadsheetID: cfg.SpreadsheetID, writeRange: writeRange, logger: logger}
}

// AppendRows writes rows as-is and returns how many rows the sheet accepted.
func (e *Exporter) AppendRows(ctx context.Context, rows [][]interface{}) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	resp, err := e.appendValues(ctx, e.spreadsheetID, e.writeRange, &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         rows,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to append to spreadsheet: %w", err)
	}

	appended := len(rows)
	if resp != nil && resp.Updates != nil {
		appended = int(resp.Updates.UpdatedRows)
	}
	e.logger.Info("Rows appended to spreadsheet",
		zap.String("spreadsheet_id", e.spreadsheetID),
		zap.Int("rows", appended),
	)
	return appended, nil
}
