package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/hotel-dashboard/internal/report"
	db "github.com/lueurxax/hotel-dashboard/internal/storage"
	"github.com/lueurxax/hotel-dashboard/internal/storage/dbtest"
)

type fakeReports struct {
	dashboard *report.Dashboard
	err       error

	searchCalls int
	lastKind    report.Kind
	lastTerm    string
}

func (f *fakeReports) Dashboard(context.Context) (*report.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.dashboard, nil
}

func (f *fakeReports) Search(_ context.Context, kind report.Kind, term string) (*report.SearchResult, error) {
	f.searchCalls++
	f.lastKind = kind
	f.lastTerm = term

	if f.err != nil {
		return nil, f.err
	}

	return &report.SearchResult{
		Kind: kind,
		Term: strings.TrimSpace(term),
		Table: &db.Table{
			Columns: []string{"staff_name", "num_tasks"},
			Rows:    [][]any{{"Frank <Hale>", int64(3)}},
		},
	}, nil
}

func sampleDashboard() *report.Dashboard {
	return &report.Dashboard{Panels: []report.Panel{
		{
			Name:  report.PanelRevenueByHotel,
			Title: "Revenue by hotel",
			Table: &db.Table{
				Columns: []string{"hotel_name", "total_revenue"},
				Rows:    [][]any{{"Grand Plaza", 1234.5}},
			},
		},
		{
			Name:  report.PanelStaffWorkload,
			Title: "Staff workload",
			Table: &db.Table{Columns: []string{"staff_id"}, Rows: [][]any{}},
		},
	}}
}

func newTestHandler(t *testing.T, reports Reports, opts Options) *Handler {
	t.Helper()

	logger := zerolog.Nop()

	handler, err := NewHandler(reports, opts, &logger)
	require.NoError(t, err)

	return handler
}

func serve(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_DashboardHTML(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{})

	rec := serve(h, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "Revenue by hotel")
	assert.Contains(t, body, "Hotel Name")
	assert.Contains(t, body, "Grand Plaza")
	assert.Contains(t, body, "1,234.50")
	assert.Contains(t, body, "No data")
}

func TestHandler_DashboardJSON(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{})

	for name, rec := range map[string]*httptest.ResponseRecorder{
		"format param":  serve(h, http.MethodGet, "/?format=json", nil),
		"accept header": serve(h, http.MethodGet, "/", map[string]string{"Accept": "application/json"}),
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var got report.Dashboard
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.Len(t, got.Panels, 2)
			assert.Equal(t, report.PanelRevenueByHotel, got.Panels[0].Name)
			assert.Equal(t, []string{"hotel_name", "total_revenue"}, got.Panels[0].Table.Columns)
		})
	}
}

func TestHandler_DashboardStorageError(t *testing.T) {
	h := newTestHandler(t, &fakeReports{err: errors.New("connection refused")}, Options{})

	rec := serve(h, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load dashboard data.")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestHandler_SearchDefaultsToGuest(t *testing.T) {
	reports := &fakeReports{}
	h := newTestHandler(t, reports, Options{})

	rec := serve(h, http.MethodGet, "/search?q=Smith", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.KindGuest, reports.lastKind)
	assert.Equal(t, "Smith", reports.lastTerm)
}

func TestHandler_SearchPassesKindAndEscapesOutput(t *testing.T) {
	reports := &fakeReports{}
	h := newTestHandler(t, reports, Options{})

	rec := serve(h, http.MethodGet, "/search?type=staff&q=%3Cscript%3E", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.KindStaff, reports.lastKind)

	body := rec.Body.String()
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "Frank &lt;Hale&gt;")
	assert.Contains(t, body, `<option value="staff" selected>`)
}

func TestHandler_SearchEmptyTypeIsUnknown(t *testing.T) {
	reports := &fakeReports{}
	h := newTestHandler(t, reports, Options{})

	serve(h, http.MethodGet, "/search?type=&q=Smith", nil)

	assert.Equal(t, report.Kind(""), reports.lastKind)
}

func TestHandler_SearchFormWithoutTerm(t *testing.T) {
	h := newTestHandler(t, &fakeReports{}, Options{})

	rec := serve(h, http.MethodGet, "/search", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form method="get" action="/search">`)
	assert.NotContains(t, rec.Body.String(), "Results for")
}

func TestHandler_SearchStorageErrorJSON(t *testing.T) {
	h := newTestHandler(t, &fakeReports{err: errors.New("boom")}, Options{})

	rec := serve(h, http.MethodGet, "/search?q=x&format=json", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to run search.", body["error"])
}

func TestHandler_NotFoundAndMethod(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{})

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"unknown path", http.MethodGet, "/reports", http.StatusNotFound},
		{"nested search path", http.MethodGet, "/search/extra", http.StatusNotFound},
		{"post dashboard", http.MethodPost, "/", http.StatusMethodNotAllowed},
		{"delete search", http.MethodDelete, "/search", http.StatusMethodNotAllowed},
		{"head dashboard", http.MethodHead, "/", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.target, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_RequestID(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{})

	rec := serve(h, http.MethodGet, "/", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = serve(h, http.MethodGet, "/", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestHandler_RateLimit(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{
		RateLimitRPS:      0.001,
		RateLimitBurst:    2,
		TrustProxyHeaders: true,
	})

	header := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", header).Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", header).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/", header).Code)

	other := map[string]string{"X-Forwarded-For": "198.51.100.1"}
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", other).Code)
}

func TestHandler_RateLimitIgnoresProxyHeadersByDefault(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	first := map[string]string{"X-Forwarded-For": "203.0.113.7"}
	second := map[string]string{"X-Forwarded-For": "203.0.113.8"}

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", first).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/", second).Code)
	assert.Len(t, h.limiters, 1)
}

func TestHandler_RateLimitEvictsIdleClients(t *testing.T) {
	h := newTestHandler(t, &fakeReports{dashboard: sampleDashboard()}, Options{
		RateLimitRPS:      0.001,
		RateLimitBurst:    1,
		LimiterIdleTTL:    time.Minute,
		TrustProxyHeaders: true,
	})

	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		serve(h, http.MethodGet, "/", map[string]string{"X-Forwarded-For": ip})
	}

	assert.Len(t, h.limiters, 3)

	now = now.Add(2 * time.Minute)

	rec := serve(h, http.MethodGet, "/", map[string]string{"X-Forwarded-For": "203.0.113.9"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.limiters, 1)
	assert.Contains(t, h.limiters, "203.0.113.9")
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{215.5, "215.50"},
		{int64(2025), "2025"},
		{"Grand Plaza", "Grand Plaza"},
		{time.Date(2025, time.May, 5, 16, 0, 0, 0, time.UTC), "2025-05-05 16:00"},
		{time.Time{}, "-"},
		{true, "true"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCell(tt.in))
	}
}

func TestColumnHeader(t *testing.T) {
	assert.Equal(t, "Stays Per Room Ratio", columnHeader("stays_per_room_ratio"))
	assert.Equal(t, "Email", columnHeader("email"))
}

func TestHandler_AgainstSQLiteStore(t *testing.T) {
	logger := zerolog.Nop()
	store := dbtest.NewSQLite(t, dbtest.Fixture())
	svc := report.NewService(store, report.DefaultOptions(), &logger)
	h := newTestHandler(t, svc, Options{})

	rec := serve(h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range report.PanelNames() {
		assert.Contains(t, body, `id="`+name+`"`)
	}

	assert.Contains(t, body, "Empty Lodge")

	rec = serve(h, http.MethodGet, "/search?type=guest&q=smith&format=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Kind  string `json:"kind"`
		Term  string `json:"term"`
		Table struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		} `json:"table"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "guest", result.Kind)
	assert.Len(t, result.Table.Rows, 4)
	assert.Equal(t, "reservation_id", result.Table.Columns[0])

	rec = serve(h, http.MethodGet, "/search?type=invoice&q=smith", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data")
}
