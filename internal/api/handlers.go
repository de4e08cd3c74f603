package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/threadscan/threadscan/internal/models"
	"github.com/threadscan/threadscan/internal/session"
)

// statusLogLines is how many trailing log lines a status poll returns.
const statusLogLines = 50

// statusPageSize is how many results a single status poll returns.
const statusPageSize = 50

// Runner runs scans. Satisfied by scraper.Service.
type Runner interface {
	Sites() int
	Scan(ctx context.Context, query string, onSiteDone func(string, []models.Product, error), onLog func(string)) ([]models.Product, error)
	ScanAll(ctx context.Context, onSiteDone func(string, []models.Product, error), onLog func(string)) ([]models.Product, error)
}

// RecordStore archives finished scans. Satisfied by database.DB.
type RecordStore interface {
	SaveScanResults(ctx context.Context, scanID string, products []models.Product) error
}

type Handlers struct {
	runner    Runner
	sessions  session.Store
	records   RecordStore
	exportDir string
	logger    *slog.Logger
}

func NewHandlers(runner Runner, sessions session.Store, records RecordStore, exportDir string, logger *slog.Logger) *Handlers {
	return &Handlers{
		runner:    runner,
		sessions:  sessions,
		records:   records,
		exportDir: exportDir,
		logger:    logger,
	}
}

// ScanRequest carries the search term for query scans.
type ScanRequest struct {
	Query string `json:"query"`
}

// ScanResponse is the payload of a synchronous scan.
type ScanResponse struct {
	Query    string           `json:"query,omitempty"`
	Count    int              `json:"count"`
	Products []models.Product `json:"products"`
}

// StartResponse acknowledges an asynchronous scan.
type StartResponse struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}

// StatusResponse is one page of a running or finished scan.
type StatusResponse struct {
	ScanID     string           `json:"scan_id"`
	Query      string           `json:"query,omitempty"`
	Status     string           `json:"status"`
	SitesTotal int              `json:"sites_total"`
	SitesDone  int              `json:"sites_done"`
	Count      int              `json:"count"`
	Results    []models.Product `json:"results"`
	NextCursor string           `json:"next_cursor,omitempty"`
	Logs       []string         `json:"logs"`
}

// Scan handles synchronous query scans. The response holds the full
// aggregated result set; no session is created.
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	products, err := h.runner.Scan(r.Context(), req.Query, nil, nil)
	if err != nil {
		h.logger.Error("scan failed", "error", err, "query", req.Query)
		h.respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	h.respondJSON(w, http.StatusOK, ScanResponse{
		Query:    req.Query,
		Count:    len(products),
		Products: products,
	})
}

// StartScan launches a query scan in the background and returns the
// session id to poll.
func (h *Handlers) StartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	h.startBackground(w, r, req.Query)
}

// StartScanAll launches a catalog scan of every configured site.
func (h *Handlers) StartScanAll(w http.ResponseWriter, r *http.Request) {
	h.startBackground(w, r, "")
}

func (h *Handlers) startBackground(w http.ResponseWriter, r *http.Request, query string) {
	scanID, err := h.sessions.Create(r.Context(), query, h.runner.Sites())
	if err != nil {
		h.logger.Error("failed to create scan session", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create scan session")
		return
	}

	go h.runBackground(scanID, query)

	h.respondJSON(w, http.StatusAccepted, StartResponse{
		ScanID: scanID,
		Status: session.StatusRunning,
	})
}

// runBackground drives one scan to completion, feeding progress into the
// session store. Detached from the request context on purpose; the scan
// outlives the HTTP request that started it.
func (h *Handlers) runBackground(scanID, query string) {
	ctx := context.Background()

	onSiteDone := func(site string, products []models.Product, siteErr error) {
		if siteErr == nil && len(products) > 0 {
			if err := h.sessions.AddResults(ctx, scanID, products); err != nil {
				h.logger.Warn("failed to record results", "error", err, "scan_id", scanID)
			}
		}
		if err := h.sessions.MarkSiteDone(ctx, scanID, site, siteErr); err != nil {
			h.logger.Warn("failed to record site completion", "error", err, "scan_id", scanID)
		}
	}
	onLog := func(message string) {
		if err := h.sessions.AddLog(ctx, scanID, message); err != nil {
			h.logger.Warn("failed to record log line", "error", err, "scan_id", scanID)
		}
	}

	var products []models.Product
	var err error
	if query != "" {
		products, err = h.runner.Scan(ctx, query, onSiteDone, onLog)
	} else {
		products, err = h.runner.ScanAll(ctx, onSiteDone, onLog)
	}
	if err != nil {
		h.logger.Error("background scan failed", "error", err, "scan_id", scanID)
	}

	if err := h.sessions.MarkComplete(ctx, scanID); err != nil {
		h.logger.Warn("failed to mark scan complete", "error", err, "scan_id", scanID)
	}

	if h.records != nil && err == nil && len(products) > 0 {
		if err := h.records.SaveScanResults(ctx, scanID, products); err != nil {
			h.logger.Error("failed to archive scan results", "error", err, "scan_id", scanID)
		}
	}
}

// ScanStatus returns one page of a scan's results plus its trailing log
// lines. Pass either scan_id for the first page or cursor for followups.
// An unknown or expired scan id yields 410.
func (h *Handlers) ScanStatus(w http.ResponseWriter, r *http.Request) {
	scanID := r.URL.Query().Get("scan_id")
	offset := 0
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		var err error
		scanID, offset, err = session.DecodeCursor(cursor)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
	}
	if scanID == "" {
		h.respondError(w, http.StatusBadRequest, "scan_id or cursor is required")
		return
	}
	if _, err := uuid.Parse(scanID); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid scan_id")
		return
	}

	entry, ok := h.sessions.Get(r.Context(), scanID)
	if !ok {
		h.respondError(w, http.StatusGone, "scan session expired or unknown")
		return
	}

	resp := StatusResponse{
		ScanID:     entry.ID,
		Query:      entry.Query,
		Status:     entry.Status,
		SitesTotal: entry.SitesTotal,
		SitesDone:  entry.SitesDone,
		Count:      len(entry.Results),
		Results:    []models.Product{},
		Logs:       tailLogs(entry.Logs, statusLogLines),
	}

	if offset < len(entry.Results) {
		end := offset + statusPageSize
		if end > len(entry.Results) {
			end = len(entry.Results)
		}
		resp.Results = entry.Results[offset:end]
		if end < len(entry.Results) || entry.Status == session.StatusRunning {
			resp.NextCursor = session.EncodeCursor(entry.ID, end)
		}
	} else if entry.Status == session.StatusRunning {
		resp.NextCursor = session.EncodeCursor(entry.ID, offset)
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ScanExport appends a scan's unexported results to its CSV file and
// serves the whole file.
func (h *Handlers) ScanExport(w http.ResponseWriter, r *http.Request) {
	scanID := r.URL.Query().Get("scan_id")
	if scanID == "" {
		h.respondError(w, http.StatusBadRequest, "scan_id is required")
		return
	}

	path, err := h.sessions.ExportCSV(r.Context(), scanID, h.exportDir)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			h.respondError(w, http.StatusGone, "scan session expired or unknown")
			return
		}
		h.logger.Error("failed to export scan", "error", err, "scan_id", scanID)
		h.respondError(w, http.StatusInternalServerError, "failed to export scan")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="scan_`+scanID+`.csv"`)
	http.ServeFile(w, r, path)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func tailLogs(logs []string, n int) []string {
	if len(logs) <= n {
		if logs == nil {
			return []string{}
		}
		return logs
	}
	return logs[len(logs)-n:]
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
