// Package google mirrors orders and expenses into a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"confeitaria/internal/core"
	"confeitaria/internal/log"
	ports "confeitaria/internal/sheets"
	"confeitaria/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultCacheValidDuration = 2 * time.Minute

// Options configures the spreadsheet client. A service account is used when
// one is given; otherwise a user token saved by confeitaria-oauth-init.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	// Row positions per sheet, refreshed after cacheValidDuration or after
	// any write that shifts rows.
	mu                 sync.Mutex
	rowIndex           map[string]sheetRows
	sheetIDs           map[string]int64
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// New creates an authenticated Sheets client.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		logger:             log.WithComponent(log.ComponentSheets),
		cacheValidDuration: defaultCacheValidDuration,
	}
}

// newSheetsService initializes a Sheets Service. Service account JSON wins
// over a credentials file, then GOOGLE_APPLICATION_CREDENTIALS, then a saved
// OAuth user token.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	file := strings.TrimSpace(opts.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) == 0 && file == "" && opts.OAuthTokenFile != "":
		ts, err := oauthTokenSource(ctx, opts)
		if err != nil {
			return nil, err
		}
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	case len(credentialsJSON) > 0:
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) UpsertOrder(ctx context.Context, o core.Order) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return c.upsert(ctx, store.Orders, o.ID, ports.OrderRow(o))
}

func (c *Client) UpsertExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return c.upsert(ctx, store.Expenses, e.ID, ports.ExpenseRow(e))
}

func (c *Client) DeleteRecord(ctx context.Context, collection string, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := ports.SheetFor(collection)
	rows, err := c.rows(ctx, sheet)
	if err != nil {
		return err
	}
	row, ok := rows.index[ports.RowKey(id)]
	if !ok {
		return nil
	}
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
			// The first sheet has id 0 and the first row index 0.
			ForceSendFields: []string{"SheetId", "StartIndex"},
		}},
	}}}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	c.InvalidateRowCache()
	if err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row, sheet, err)
	}
	c.logger.InfoContext(ctx, "Deleted mirrored row", log.FieldCollection, collection, log.FieldRecordID, id, "row", row)
	return nil
}

func (c *Client) upsert(ctx context.Context, collection string, id int64, values []any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := ports.SheetFor(collection)
	existing, err := c.rows(ctx, sheet)
	if err != nil {
		return err
	}

	if row, ok := existing.index[ports.RowKey(id)]; ok {
		rng := fmt.Sprintf("%s!A%d", sheet, row)
		vr := &gsheet.ValueRange{Values: [][]any{values}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Updated mirrored row", log.FieldCollection, collection, log.FieldRecordID, id, "row", row)
		return nil
	}

	rows := [][]any{values}
	if existing.count == 0 {
		rows = [][]any{ports.Header(collection), values}
	}
	rng := fmt.Sprintf("%s!A:A", sheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	c.InvalidateRowCache()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	c.logger.DebugContext(ctx, "Appended mirrored row", log.FieldCollection, collection, log.FieldRecordID, id)
	return nil
}

// rows returns the row positions of a sheet, reading column A when the
// cached copy has expired.
func (c *Client) rows(ctx context.Context, sheet string) (sheetRows, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		if rows, ok := c.rowIndex[sheet]; ok {
			c.mu.Unlock()
			return rows, nil
		}
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return sheetRows{}, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := sheetRows{index: indexRows(resp.Values), count: len(resp.Values)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rowIndex == nil || !time.Now().Before(c.cacheExpiresAt) {
		c.rowIndex = map[string]sheetRows{}
		c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	}
	c.rowIndex[sheet] = rows
	return rows, nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	ids := sheetIDsByTitle(ss.Sheets)

	c.mu.Lock()
	c.sheetIDs = ids
	c.mu.Unlock()

	id, ok = ids[title]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found", title)
	}
	return id, nil
}

// InvalidateRowCache forces the next lookup to re-read row positions.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
}
