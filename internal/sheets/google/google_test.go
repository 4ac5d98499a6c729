package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"wisma/internal/core"
	ports "wisma/internal/sheets"
)

// fakeSheets serves the two Values endpoints the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	gets     int
	puts     []string
	failPut  bool
	rows     [][]any
	lastBody map[string]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := strings.Index(r.URL.Path, "/values/")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[idx+len("/values/"):]

	switch r.Method {
	case http.MethodGet:
		f.gets++
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.rows})
	case http.MethodPut:
		if f.failPut {
			http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
			return
		}
		f.puts = append(f.puts, rng)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.lastBody = body
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), Config{SpreadsheetID: "sheet-id", SheetName: "Cash Flow"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func TestClient_AppendRowUsesRowCache(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{{"Date"}, {"2024-01-01"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	row := ports.LedgerRow{Date: core.NewDate(2024, 3, 1), Type: "stay.payment", Reference: "s1", Income: 400000}
	ref, err := c.AppendRow(ctx, row)
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if ref != "2024 Cash Flow!A3:F3" {
		t.Fatalf("ref = %q", ref)
	}
	if _, err := c.AppendRow(ctx, row); err != nil {
		t.Fatalf("second AppendRow: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.gets != 1 {
		t.Fatalf("dimension lookups = %d, want 1", fake.gets)
	}
	if len(fake.puts) != 2 || !strings.HasSuffix(fake.puts[1], "A4:F4") {
		t.Fatalf("puts = %v", fake.puts)
	}
	values, _ := fake.lastBody["values"].([]any)
	if len(values) != 1 {
		t.Fatalf("body = %v", fake.lastBody)
	}
	cells, _ := values[0].([]any)
	if len(cells) != 6 || cells[0] != "2024-03-01" || cells[1] != "stay.payment" {
		t.Fatalf("cells = %v", cells)
	}
}

func TestClient_AppendRowFailureInvalidatesCache(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{{"Date"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()
	row := ports.LedgerRow{Date: core.NewDate(2024, 3, 1), Type: "expense.created", Expense: 30000}

	if _, err := c.AppendRow(ctx, row); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	fake.mu.Lock()
	fake.failPut = true
	fake.mu.Unlock()
	if _, err := c.AppendRow(ctx, row); err == nil {
		t.Fatal("expected error from failing update")
	}
	fake.mu.Lock()
	fake.failPut = false
	fake.mu.Unlock()
	if _, err := c.AppendRow(ctx, row); err != nil {
		t.Fatalf("AppendRow after failure: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.gets != 2 {
		t.Fatalf("dimension lookups = %d, want 2 (cache dropped after failure)", fake.gets)
	}
}

func TestClient_AppendRowRejectsMissingDate(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.AppendRow(context.Background(), ports.LedgerRow{Type: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestClient_ListRows(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{
		{"Date", "Type", "Reference", "Description", "Income", "Expense"},
		{"2024-03-01", "stay.payment", "s1", "Room 105", "400,000", "0"},
		{"2024-03-02", "expense.created", "e1", "PDAM", "", "Rp30.000"},
		{"not a date", "x"},
	}}
	c := newTestClient(t, fake)

	rows, err := c.ListRows(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Income != 400000 || rows[1].Expense != 30000 || rows[1].Income != 0 {
		t.Fatalf("amounts = %+v", rows)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Cash Flow", 2024, "2024 Cash Flow"},
		{"  Cash Flow ", 2025, "2025 Cash Flow"},
		{"2023 Cash Flow", 2024, "2023 Cash Flow"},
		{"", 2024, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestParseRupiah(t *testing.T) {
	tests := []struct {
		in   string
		want core.Money
		ok   bool
	}{
		{"400000", 400000, true},
		{"400,000", 400000, true},
		{"Rp400.000", 400000, true},
		{"-30.000", -30000, true},
		{"0", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRupiah(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseRupiah(%q) = %d, %v", tt.in, got, ok)
		}
	}
}

func TestServiceAccountJSON(t *testing.T) {
	if _, err := serviceAccountJSON(Config{}); err == nil {
		t.Fatal("expected error without credentials")
	}
	if b, err := serviceAccountJSON(Config{ServiceAccountJSON: `{"type":"service_account"}`}); err != nil || len(b) == 0 {
		t.Fatalf("inline json: %v", err)
	}
	if _, err := serviceAccountJSON(Config{ServiceAccountFile: "/nonexistent/sa.json"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
