package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"wisma/internal/log"
	ports "wisma/internal/sheets"
)

const defaultRowCacheTTL = 5 * time.Minute

var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Client appends ledger rows to "<year> <SheetName>" tabs.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger
	now           func() time.Time

	rows rowCache
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg, logger), nil
}

// NewWithOptions builds a client from explicit API options, for tests and
// alternative endpoints.
func NewWithOptions(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg, logger), nil
}

func newClient(svc *gsheet.Service, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Cash Flow"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
		logger:        logger.WithComponent(log.ComponentSheets),
		now:           time.Now,
		rows:          rowCache{ttl: defaultRowCacheTTL},
	}
}

func serviceAccountJSON(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// SheetName is the tab holding rows for year.
func (c *Client) SheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// AppendRow writes row below the last used row of its year's tab.
func (c *Client) AppendRow(ctx context.Context, row ports.LedgerRow) (string, error) {
	if err := row.Date.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.SheetName(row.Date.Year())
	next, err := c.nextRow(ctx, sheet)
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A%d:F%d", sheet, next, next)
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Date.String(),
		row.Type,
		row.Reference,
		row.Description,
		int64(row.Income),
		int64(row.Expense),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.rows.invalidate(sheet)
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	c.rows.advance(sheet, next+1, c.now())

	c.logger.DebugContext(ctx, "Ledger row appended", "range", rng, "type", row.Type)
	return rng, nil
}

func (c *Client) nextRow(ctx context.Context, sheet string) (int, error) {
	if n, ok := c.rows.get(sheet, c.now()); ok {
		return n, nil
	}
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}
	return len(resp.Values) + 1, nil
}

// ListRows reads every ledger row of year's tab. Header and malformed rows
// are skipped.
func (c *Client) ListRows(ctx context.Context, year int) ([]ports.LedgerRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:F", c.SheetName(year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// rowCache remembers the next free row per tab so consecutive appends skip
// the dimension lookup.
type rowCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]rowEntry
}

type rowEntry struct {
	next       int
	validUntil time.Time
}

func (r *rowCache) get(sheet string, now time.Time) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sheet]
	if !ok || now.After(e.validUntil) {
		return 0, false
	}
	return e.next, true
}

func (r *rowCache) advance(sheet string, next int, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]rowEntry)
	}
	r.entries[sheet] = rowEntry{next: next, validUntil: now.Add(r.ttl)}
}

func (r *rowCache) invalidate(sheet string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sheet)
}
