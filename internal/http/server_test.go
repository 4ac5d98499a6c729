package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xuri/excelize/v2"

	"wisma/internal/auth"
	"wisma/internal/core"
	"wisma/internal/events"
	"wisma/internal/log"
	"wisma/internal/middleware/ratelimit"
	"wisma/internal/services"
	"wisma/internal/storage/memory"
)

const testIDPSecret = "idp-secret-for-tests"

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	srv   *Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	deps := services.Deps{
		Store:    store,
		Hub:      events.NewHub(),
		Logger:   logger,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	}
	flows := services.NewCashFlowService(deps)
	stays := services.NewStayService(deps, flows)
	sessions := auth.NewManager(auth.NewIdentityVerifier(testIDPSecret, "", ""), auth.NewMemoryStore(), "session-secret-for-tests", logger)

	srv := NewServer(Config{
		Addr:      ":0",
		RateLimit: ratelimit.Config{RequestsPerMinute: 1000},
		Heartbeat: time.Hour,
	}, Deps{
		Stays:    stays,
		Flows:    flows,
		Sessions: sessions,
		Outbox:   services.NewOutboxProcessor(store, flows, services.DefaultOutboxProcessorConfig(), logger),
		Logger:   logger,
		Ready:    store.Ping,
	})
	return &testServer{srv: srv, store: store}
}

func testDate() core.Date {
	return core.DateOf(testNow, time.UTC)
}

func idToken(t *testing.T, sub, email string, admin bool) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"admin": admin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testIDPSecret))
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return token
}

// login opens a session and returns its cookie.
func (ts *testServer) login(t *testing.T, sub, email string, admin bool) *http.Cookie {
	t.Helper()
	rec := ts.do(t, nil, http.MethodPost, "/api/session", `{"idToken":"`+idToken(t, sub, email, admin)+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("login set no session cookie")
	return nil
}

func (ts *testServer) do(t *testing.T, cookie *http.Cookie, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := ts.do(t, nil, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	ts.srv.ready = func(context.Context) error { return errors.New("database is locked") }
	if rec := ts.do(t, nil, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store = %d", rec.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/stays", "/api/flows", "/api/expenses", "/api/me"} {
		rec := ts.do(t, nil, http.MethodGet, path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
		body := decode[errorBody](t, rec)
		if body.Redirect != "/login" || body.Error == "" {
			t.Fatalf("%s body=%+v", path, body)
		}
	}
}

func TestSessionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, nil, http.MethodPost, "/api/session", `{"idToken":"garbage"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad id token status=%d", rec.Code)
	}
	rec = ts.do(t, nil, http.MethodPost, "/api/session", `{}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing id token status=%d", rec.Code)
	}

	cookie := ts.login(t, "desk-1", "desk@example.com", false)
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode || cookie.MaxAge != 5*24*60*60 {
		t.Fatalf("cookie attributes: %+v", cookie)
	}

	rec = ts.do(t, cookie, http.MethodGet, "/api/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status=%d", rec.Code)
	}
	if me := decode[sessionResponse](t, rec); me.Subject != "desk-1" || me.Admin {
		t.Fatalf("me = %+v", me)
	}

	if rec := ts.do(t, cookie, http.MethodDelete, "/api/session", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d", rec.Code)
	}
	if rec := ts.do(t, cookie, http.MethodGet, "/api/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout status=%d", rec.Code)
	}
}

func TestAdminGrant(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.login(t, "desk-1", "desk@example.com", false)
	owner := ts.login(t, "owner", "owner@example.com", true)

	if rec := ts.do(t, staff, http.MethodPost, "/api/admin/grants", `{"email":"desk@example.com"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("staff grant status=%d", rec.Code)
	}
	if rec := ts.do(t, owner, http.MethodPost, "/api/admin/grants", `{"email":"not-an-email"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email status=%d", rec.Code)
	}
	if rec := ts.do(t, owner, http.MethodPost, "/api/admin/grants", `{"email":"desk@example.com"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("owner grant status=%d body=%s", rec.Code, rec.Body.String())
	}

	promoted := ts.login(t, "desk-1", "desk@example.com", false)
	if me := decode[sessionResponse](t, ts.do(t, promoted, http.MethodGet, "/api/me", "")); !me.Admin {
		t.Fatalf("grant not applied on next sign-in")
	}
}

func TestStayLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	c := ts.login(t, "desk-1", "desk@example.com", false)

	rec := ts.do(t, c, http.MethodPost, "/api/stays", `{"roomNumber":105,"guestName":"budi","checkInDate":"2024-01-01","checkOutDate":"2024-01-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in status=%d body=%s", rec.Code, rec.Body.String())
	}
	stay := decode[services.StayView](t, rec)
	if stay.GuestName != "BUDI" || stay.Outstanding != 800000 || stay.PaymentSummary != "Not Paid, 4 days" {
		t.Fatalf("check-in view = %+v", stay)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/stays/"+stay.ID {
		t.Fatalf("Location = %q", loc)
	}
	base := "/api/stays/" + stay.ID

	rec = ts.do(t, c, http.MethodGet, base+"/quote?paidThrough=2024-01-03", "")
	if q := decode[services.Quote](t, rec); q.Days != 2 || q.Amount != 400000 {
		t.Fatalf("quote = %+v", q)
	}

	rec = ts.do(t, c, http.MethodPost, base+"/payments", `{"paidThrough":"2024-01-03"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, c, http.MethodGet, base, "")
	if v := decode[services.StayView](t, rec); v.Status != "partiallyPaid" || v.Outstanding != 400000 {
		t.Fatalf("after first payment = %+v", v)
	}

	rec = ts.do(t, c, http.MethodPost, base+"/checkout", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("early checkout status=%d", rec.Code)
	}
	if body := decode[errorBody](t, rec); body.Error != "Stay must be fully paid before check-out" {
		t.Fatalf("early checkout message = %q", body.Error)
	}

	if rec := ts.do(t, c, http.MethodPost, base+"/payments", `{"paidThrough":"2024-01-05","amount":"Rp 400.000"}`); rec.Code != http.StatusCreated {
		t.Fatalf("second payment status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, c, http.MethodPost, base+"/checkout", "")
	if v := decode[services.StayView](t, rec); rec.Code != http.StatusOK || v.Status != "checkOut" {
		t.Fatalf("checkout status=%d view=%+v", rec.Code, v)
	}

	rec = ts.do(t, c, http.MethodGet, "/api/stays?active=true", "")
	if active := decode[[]services.StayView](t, rec); len(active) != 0 {
		t.Fatalf("active stays = %+v", active)
	}
	rec = ts.do(t, c, http.MethodGet, "/api/flows", "")
	if flows := decode[[]map[string]any](t, rec); len(flows) != 1 || flows[0]["amount"] != float64(800000) {
		t.Fatalf("payments should book income on today: %+v", flows)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	c := ts.login(t, "desk-1", "desk@example.com", false)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		msg    string
	}{
		{"invalid room", http.MethodPost, "/api/stays", `{"roomNumber":401,"guestName":"x","checkInDate":"2024-01-01","checkOutDate":"2024-01-02"}`, 422, "Please enter a valid room number"},
		{"missing date", http.MethodPost, "/api/stays", `{"roomNumber":105,"guestName":"x","checkInDate":"2024-01-01"}`, 422, "Please enter check out date"},
		{"bad date", http.MethodPost, "/api/stays", `{"roomNumber":105,"guestName":"x","checkInDate":"01/01/2024","checkOutDate":"2024-01-02"}`, 422, "Please enter a valid date"},
		{"malformed json", http.MethodPost, "/api/stays", `{"roomNumber":`, 400, "Malformed request"},
		{"unknown field", http.MethodPost, "/api/flows", `{"income":1,"bogus":true}`, 400, "Malformed request"},
		{"unknown stay", http.MethodGet, "/api/stays/nope", "", 404, "Not found"},
		{"empty flow", http.MethodPost, "/api/flows", `{"date":"2024-03-01"}`, 422, "Flow must record income or expense"},
		{"bad amount", http.MethodPost, "/api/flows", `{"income":"abc"}`, 422, "Please enter a valid amount"},
		{"bad period", http.MethodGet, "/api/flows/rollup?period=decade", "", 422, `Unknown period "decade"`},
		{"bad offset", http.MethodGet, "/api/flows/rollup?offset=-1", "", 422, "Offset must be zero or a positive number"},
		{"offset too far back", http.MethodGet, "/api/flows/rollup?period=week&offset=9223372036854775807", "", 422, "Offset cannot exceed 10000"},
		{"unknown expense", http.MethodDelete, "/api/expenses/nope", "", 404, "Not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, c, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if body := decode[errorBody](t, rec); body.Error != tc.msg {
				t.Fatalf("message = %q, want %q", body.Error, tc.msg)
			}
		})
	}
}

func TestCashFlowEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := ts.login(t, "desk-1", "desk@example.com", false)

	rec := ts.do(t, c, http.MethodPost, "/api/flows", `{"date":"2024-03-11","income":"Rp 400.000","expense":50000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record flow status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, c, http.MethodPost, "/api/flows", `{"income":100000}`); rec.Code != http.StatusCreated {
		t.Fatalf("flow for today status=%d", rec.Code)
	}

	rec = ts.do(t, c, http.MethodGet, "/api/flows/rollup?period=week", "")
	var rollup struct {
		Start   string `json:"start"`
		End     string `json:"end"`
		Summary struct {
			TotalIncome  int64 `json:"totalIncome"`
			TotalExpense int64 `json:"totalExpense"`
			Net          int64 `json:"net"`
		} `json:"summary"`
		Chart []struct {
			Label string `json:"label"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rollup); err != nil {
		t.Fatalf("decode rollup: %v", err)
	}
	if rollup.Start != "2024-03-10" || rollup.End != "2024-03-16" || len(rollup.Chart) != 7 {
		t.Fatalf("rollup window = %+v", rollup)
	}
	if rollup.Summary.TotalIncome != 500000 || rollup.Summary.Net != 450000 {
		t.Fatalf("rollup summary = %+v", rollup.Summary)
	}

	rec = ts.do(t, c, http.MethodGet, "/api/wallet", "")
	if w := decode[map[string]float64](t, rec); w["net"] != 450000 {
		t.Fatalf("wallet = %+v", w)
	}

	rec = ts.do(t, c, http.MethodGet, "/api/flows/export.xlsx?period=week", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), "cash-flow_week_2024-03-10_2024-03-16.xlsx") {
		t.Fatalf("export status=%d headers=%v", rec.Code, rec.Header())
	}
	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Cash Flow", "B2"); v != "400000" {
		t.Fatalf("export B2 = %q", v)
	}
}

func TestExpenseEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := ts.login(t, "desk-1", "desk@example.com", false)

	rec := ts.do(t, c, http.MethodPost, "/api/expenses", `{"title":"Water bill","amount":"75.000","date":"2024-03-12","category":"water"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]any](t, rec)
	id, _ := created["id"].(string)

	if rec := ts.do(t, c, http.MethodPost, "/api/expenses", `{"title":"Mop","amount":1,"category":"cleaning"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad category status=%d", rec.Code)
	}

	rec = ts.do(t, c, http.MethodGet, "/api/expenses/by-category", "")
	totals := decode[[]map[string]any](t, rec)
	if len(totals) != 5 || totals[0]["category"] != "water" || totals[0]["total"] != float64(75000) {
		t.Fatalf("by-category = %+v", totals)
	}

	rec = ts.do(t, c, http.MethodGet, "/api/flows", "")
	if flows := decode[[]map[string]any](t, rec); len(flows) != 1 || flows[0]["negAmount"] != float64(75000) {
		t.Fatalf("expense should book a flow: %+v", flows)
	}

	if rec := ts.do(t, c, http.MethodDelete, "/api/expenses/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if list := decode[[]map[string]any](t, ts.do(t, c, http.MethodGet, "/api/expenses", "")); len(list) != 0 {
		t.Fatalf("expenses after delete = %+v", list)
	}
}

func TestStayStream(t *testing.T) {
	ts := newTestServer(t)
	c := ts.login(t, "desk-1", "desk@example.com", false)
	httpSrv := httptest.NewServer(ts.srv.Handler)
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/api/stays/stream", nil)
	req.AddCookie(c)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		t.Helper()
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if first := next(); first != "[]" {
		t.Fatalf("initial snapshot = %s", first)
	}

	rec := ts.do(t, c, http.MethodPost, "/api/stays", `{"roomNumber":203,"guestName":"sari","checkInDate":"2024-03-15","checkOutDate":"2024-03-17"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in status=%d", rec.Code)
	}
	if second := next(); !strings.Contains(second, `"roomNumber":203`) || !strings.Contains(second, `"outstanding":360000`) {
		t.Fatalf("snapshot after check-in = %s", second)
	}
}

func TestAdminOutboxEndpoints(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.login(t, "desk-1", "desk@example.com", false)
	owner := ts.login(t, "owner", "owner@example.com", true)

	if rec := ts.do(t, staff, http.MethodGet, "/api/admin/outbox", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("staff outbox status=%d", rec.Code)
	}

	if _, err := ts.store.EnqueueFlow(context.Background(), testDate(), 100, 0, "database is locked"); err != nil {
		t.Fatalf("EnqueueFlow: %v", err)
	}
	rec := ts.do(t, owner, http.MethodGet, "/api/admin/outbox", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("outbox stats status=%d", rec.Code)
	}
	if stats := decode[map[string]int64](t, rec); stats["pending"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	rec = ts.do(t, owner, http.MethodPost, "/api/admin/outbox/retry", "")
	if got := decode[map[string]int64](t, rec); rec.Code != http.StatusOK || got["requeued"] != 0 {
		t.Fatalf("retry status=%d body=%+v", rec.Code, got)
	}
}
