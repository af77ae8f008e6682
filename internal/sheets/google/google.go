package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/ratelimit"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Default tab names; the mirror and report exports use separate tabs.
const (
	DefaultSheetName       = "Transactions"
	DefaultExportSheetName = "Report"
)

// mirrorColumns is the header of the mirror tab, columns A:G.
var mirrorColumns = []any{"ID", "Date", "Type", "Category", "Description", "Amount", "Currency"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	exportSheet   string
	limiter       *ratelimit.Limiter
	logger        *log.Logger
}

// Ensure interface conformance
var (
	_ ports.Mirror    = (*Client)(nil)
	_ export.Exporter = (*Client)(nil)
)

// Config selects the spreadsheet and service account credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	ExportSheetName string
	// CredentialsJSON wins over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	// RequestsPerMinute caps API calls; zero means no limit.
	RequestsPerMinute int
}

// New creates a Sheets client using service account credentials.
// When neither credential is set, GOOGLE_APPLICATION_CREDENTIALS is used.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger)
	if name := strings.TrimSpace(cfg.ExportSheetName); name != "" {
		c.exportSheet = name
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute})
	}
	return c, nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetName:     strings.TrimSpace(sheetName),
		exportSheet:   DefaultExportSheetName,
		logger:        log.OrDiscard(logger),
	}
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WithLimiter throttles every API call through rl.
func (c *Client) WithLimiter(rl *ratelimit.Limiter) *Client {
	c.limiter = rl
	return c
}

// throttle waits for quota before one API call.
func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx, c.spreadsheetID)
}

func (c *Client) Destination() string {
	return fmt.Sprintf("sheets:%s/%s", c.spreadsheetID, c.exportSheet)
}

// Export replaces columns A:E of the export tab with the CSV layout of r.
func (c *Client) Export(ctx context.Context, r export.Report) error {
	if c.svc == nil {
		return core.ExportFailure(c.Destination(), errors.New("sheets service not initialized"))
	}

	clearRange := fmt.Sprintf("%s!A:E", c.exportSheet)
	if err := c.throttle(ctx); err != nil {
		return core.ExportFailure(c.Destination(), err)
	}
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return core.ExportFailure(c.Destination(), fmt.Errorf("clear %s: %w", clearRange, err))
	}

	rows := export.Rows(r)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}

	rng := fmt.Sprintf("%s!A1:E%d", c.exportSheet, len(values))
	if err := c.throttle(ctx); err != nil {
		return core.ExportFailure(c.Destination(), err)
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return core.ExportFailure(c.Destination(), fmt.Errorf("update %s: %w", rng, err))
	}

	c.logger.InfoContext(ctx, "Report exported to Google Sheets",
		log.FieldDestination, c.Destination(),
		"rows", len(r.Transactions))
	return nil
}

// AppendTransaction writes t after the last used row of column A, adding the
// header first on an empty tab.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	if err := c.throttle(ctx); err != nil {
		return "", err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}
	if row := findRow(resp.Values, t.ID); row > 0 {
		// Redelivered event; already mirrored
		return fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row), nil
	}
	nextRow := len(resp.Values) + 1

	values := [][]any{}
	if nextRow == 1 {
		values = append(values, mirrorColumns)
	}
	values = append(values, []any{
		t.ID,
		t.Date.String(),
		t.Kind.String(),
		t.Category,
		t.Description,
		core.FormatAmount(t.Signed()),
		t.Currency,
	})
	lastRow := nextRow + len(values) - 1

	dataRange := fmt.Sprintf("%s!A%d:G%d", c.sheetName, nextRow, lastRow)
	if err := c.throttle(ctx); err != nil {
		return "", err
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return fmt.Sprintf("%s!A%d:G%d", c.sheetName, lastRow, lastRow), nil
}

// RemoveTransaction clears every row whose ID column equals id.
func (c *Client) RemoveTransaction(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	if err := c.throttle(ctx); err != nil {
		return err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	for i, cells := range resp.Values {
		if !hasID(cells, id) {
			continue
		}
		rowRange := fmt.Sprintf("%s!A%d:G%d", c.sheetName, i+1, i+1)
		if err := c.throttle(ctx); err != nil {
			return err
		}
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rowRange, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear %s: %w", rowRange, err)
		}
		c.logger.DebugContext(ctx, "Mirrored transaction cleared", log.FieldTransactionID, id, log.FieldSheetsRef, rowRange)
	}
	return nil
}

// findRow returns the 1-based row whose first cell is id, or 0.
func findRow(values [][]interface{}, id int64) int {
	for i, cells := range values {
		if hasID(cells, id) {
			return i + 1
		}
	}
	return 0
}

func hasID(cells []interface{}, id int64) bool {
	return len(cells) > 0 && strings.TrimSpace(fmt.Sprint(cells[0])) == strconv.FormatInt(id, 10)
}
