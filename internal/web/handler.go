package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/hotel-dashboard/internal/report"
)

const (
	// Route names used as metric labels.
	routeDashboard = "dashboard"
	routeSearch    = "search"
	routeNotFound  = "not_found"
	routeInvalid   = "invalid_method"

	// Query parameters.
	paramType   = "type"
	paramTerm   = "q"
	paramFormat = "format"

	// Header constants.
	headerContentType = "Content-Type"
	headerRequestID   = "X-Request-ID"
	contentTypeHTML   = "text/html; charset=utf-8"
	contentTypeJSON   = "application/json; charset=utf-8"

	// Template names.
	tmplDashboard = "dashboard.html"
	tmplSearch    = "search.html"
	tmplError     = "error.html"

	// Error titles.
	errTitleNotFound    = "Not Found"
	errTitleMethod      = "Method Not Allowed"
	errTitleRateLimited = "Too Many Requests"
	errTitleError       = "Error"

	// Log field names.
	logFieldRoute     = "route"
	logFieldRequestID = "request_id"
	logFieldStatus    = "status"
)

// Reports is the query layer the handler renders.
type Reports interface {
	Dashboard(ctx context.Context) (*report.Dashboard, error)
	Search(ctx context.Context, kind report.Kind, term string) (*report.SearchResult, error)
}

// Options configures the handler.
type Options struct {
	// RateLimitRPS is the per-client request rate. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// LimiterIdleTTL drops the limiter of a client idle for longer.
	LimiterIdleTTL time.Duration
	// TrustProxyHeaders keys clients by X-Forwarded-For or X-Real-IP instead of
	// the connection address. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

const defaultLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Handler serves the dashboard and search pages.
type Handler struct {
	reports  Reports
	renderer *Renderer
	opts     Options
	logger   *zerolog.Logger

	// IP-based rate limiting
	limiters   map[string]*clientLimiter
	limitersMu sync.Mutex
	lastSweep  time.Time
	now        func() time.Time
}

// NewHandler creates a new dashboard handler.
func NewHandler(reports Reports, opts Options, logger *zerolog.Logger) (*Handler, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 1
	}

	if opts.LimiterIdleTTL <= 0 {
		opts.LimiterIdleTTL = defaultLimiterIdleTTL
	}

	return &Handler{
		reports:  reports,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
	}, nil
}

// ServeHTTP routes requests to the dashboard and search pages.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	w.Header().Set(headerRequestID, requestID)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	logger := h.logger.With().Str(logFieldRequestID, requestID).Logger()
	route, status, rows := h.dispatch(w, r, &logger)

	h.recordMetrics(route, status, rows, start)

	logger.Debug().
		Str(logFieldRoute, route).
		Int(logFieldStatus, status).
		Int("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("request served")
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger) (route string, status int, rows int) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return routeInvalid, h.writeError(w, r, http.StatusMethodNotAllowed, errTitleMethod, "Only GET requests are supported."), 0
	}

	if !h.allowRequest(h.clientIP(r)) {
		errorsTotal.WithLabelValues(ErrorTypeRateLimited).Inc()
		return routeForPath(r.URL.Path), h.writeError(w, r, http.StatusTooManyRequests, errTitleRateLimited, "Please wait before trying again."), 0
	}

	switch r.URL.Path {
	case "/":
		status, rows := h.handleDashboard(w, r, logger)
		return routeDashboard, status, rows
	case "/search":
		status, rows := h.handleSearch(w, r, logger)
		return routeSearch, status, rows
	default:
		return routeNotFound, h.writeError(w, r, http.StatusNotFound, errTitleNotFound, "No such page."), 0
	}
}

func routeForPath(path string) string {
	switch path {
	case "/":
		return routeDashboard
	case "/search":
		return routeSearch
	default:
		return routeNotFound
	}
}

func (h *Handler) recordMetrics(route string, status, rows int, start time.Time) {
	latencyHistogram.WithLabelValues(route).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

	if status == http.StatusOK {
		resultRowsGauge.WithLabelValues(route).Set(float64(rows))
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger) (int, int) {
	dash, err := h.reports.Dashboard(r.Context())
	if err != nil {
		logger.Error().Err(err).Str(logFieldRoute, routeDashboard).Msg("load dashboard failed")
		errorsTotal.WithLabelValues(ErrorTypeDB).Inc()

		return h.writeError(w, r, http.StatusInternalServerError, errTitleError, "Failed to load dashboard data."), 0
	}

	rows := 0
	for _, p := range dash.Panels {
		rows += p.Table.Len()
	}

	if wantsJSON(r) {
		return h.writeJSON(w, http.StatusOK, dash), rows
	}

	data := DashboardViewData{
		Title:  "Hotel chain dashboard",
		Panels: dash.Panels,
	}

	return h.renderHTML(w, r, tmplDashboard, data, logger), rows
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger) (int, int) {
	query := r.URL.Query()

	kind := report.KindGuest
	if query.Has(paramType) {
		kind = report.ParseKind(query.Get(paramType))
	}

	result, err := h.reports.Search(r.Context(), kind, query.Get(paramTerm))
	if err != nil {
		logger.Error().Err(err).Str(logFieldRoute, routeSearch).Str("kind", string(kind)).Msg("search failed")
		errorsTotal.WithLabelValues(ErrorTypeDB).Inc()

		return h.writeError(w, r, http.StatusInternalServerError, errTitleError, "Failed to run search."), 0
	}

	rows := result.Table.Len()

	if wantsJSON(r) {
		return h.writeJSON(w, http.StatusOK, result), rows
	}

	data := SearchViewData{
		Title:  "Search",
		Kinds:  report.Kinds(),
		Kind:   result.Kind,
		Term:   result.Term,
		Result: result,
	}

	return h.renderHTML(w, r, tmplSearch, data, logger), rows
}

func (h *Handler) allowRequest(ip string) bool {
	if h.opts.RateLimitRPS <= 0 {
		return true
	}

	now := h.now()

	h.limitersMu.Lock()

	if now.Sub(h.lastSweep) >= h.opts.LimiterIdleTTL {
		h.sweepLimiters(now)
	}

	entry, ok := h.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(h.opts.RateLimitRPS), h.opts.RateLimitBurst)}
		h.limiters[ip] = entry
	}

	entry.lastSeen = now

	h.limitersMu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// sweepLimiters drops idle clients. Callers hold limitersMu.
func (h *Handler) sweepLimiters(now time.Time) {
	for ip, entry := range h.limiters {
		if now.Sub(entry.lastSeen) > h.opts.LimiterIdleTTL {
			delete(h.limiters, ip)
		}
	}

	h.lastSweep = now
}

func (h *Handler) clientIP(r *http.Request) string {
	if h.opts.TrustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func wantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get(paramFormat), "json") {
		return true
	}

	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) int {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("write json failed")
	}

	return status
}

// renderHTML renders into a buffer first so a template failure still yields
// a complete error page.
func (h *Handler) renderHTML(w http.ResponseWriter, r *http.Request, name string, data any, logger *zerolog.Logger) int {
	var buf bytes.Buffer

	if err := h.renderer.Render(&buf, name, data); err != nil {
		logger.Error().Err(err).Str("template", name).Msg("render page failed")
		errorsTotal.WithLabelValues(ErrorTypeRender).Inc()

		return h.writeError(w, r, http.StatusInternalServerError, errTitleError, "Failed to render page.")
	}

	w.Header().Set(headerContentType, contentTypeHTML)
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug().Err(err).Msg("write response failed")
	}

	return http.StatusOK
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, title, message string) int {
	if wantsJSON(r) {
		return h.writeJSON(w, status, map[string]string{"error": message})
	}

	w.Header().Set(headerContentType, contentTypeHTML)
	w.WriteHeader(status)

	if err := h.renderer.Render(w, tmplError, ErrorViewData{
		Title:   title,
		Message: message,
		Status:  status,
	}); err != nil {
		h.logger.Error().Err(err).Msg("failed to render error page")
	}

	return status
}
