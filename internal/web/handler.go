package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cursorhide/cursorhide/internal/controller"
	"github.com/cursorhide/cursorhide/internal/database"
	"github.com/cursorhide/cursorhide/internal/models"
	"github.com/cursorhide/cursorhide/internal/reporter"
	"github.com/cursorhide/cursorhide/pkg/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

const defaultEventLimit = 100

// Controller is the live state the API exposes
type Controller interface {
	Snapshot() controller.Snapshot
	Show() error
}

type Handler struct {
	ctrl     Controller
	repo     *database.Repository
	reporter *reporter.Reporter
}

func NewHandler(ctrl Controller, repo *database.Repository) *Handler {
	h := &Handler{
		ctrl: ctrl,
		repo: repo,
	}
	if repo != nil {
		h.reporter = reporter.New(repo)
	}
	return h
}

func (h *Handler) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/", h.handleIndex)
	router.GET("/health", h.handleHealth)
	router.GET("/api/status", h.handleStatus)
	router.POST("/api/show", h.handleShow)
	router.GET("/api/events", h.handleEvents)
	router.GET("/api/events/latest", h.handleLatestEvent)
	router.GET("/api/errors", h.handleErrors)
	router.GET("/api/report", h.handleReport)
	return router
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	respondJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := map[string]interface{}{
		"controller": h.ctrl.Snapshot(),
		"journal":    h.repo != nil,
	}

	if h.repo != nil {
		if latest, err := h.repo.GetLatest(); err == nil && latest != nil {
			status["latest_event"] = latest
		}
	}

	respondJSON(w, status)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.ctrl.Show(); err != nil {
		http.Error(w, fmt.Sprintf("Failed to show pointer: %v", err), http.StatusBadGateway)
		return
	}
	respondJSON(w, h.ctrl.Snapshot())
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.journalEnabled(w) {
		return
	}

	query := r.URL.Query()

	start := time.Now().Add(-24 * time.Hour)
	if periodType := query.Get("period"); periodType != "" {
		period, err := reporter.Period(periodType, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		start = period.Start
	}

	limit := defaultEventLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	events, err := h.repo.GetEventsSince(start)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch events: %v", err), http.StatusInternalServerError)
		return
	}

	// Keep the newest
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []*models.VisibilityEvent{}
	}

	respondJSON(w, events)
}

func (h *Handler) handleLatestEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.journalEnabled(w) {
		return
	}

	event, err := h.repo.GetLatest()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch latest event: %v", err), http.StatusInternalServerError)
		return
	}

	if event == nil {
		http.Error(w, "No events found", http.StatusNotFound)
		return
	}

	respondJSON(w, event)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.journalEnabled(w) {
		return
	}

	logs, err := h.repo.RecentErrors(defaultEventLimit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch errors: %v", err), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*models.ErrorLog{}
	}

	respondJSON(w, logs)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.journalEnabled(w) {
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}
	if _, err := reporter.Period(periodType, time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		respondReportHTML(w, report)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) journalEnabled(w http.ResponseWriter) bool {
	if h.repo == nil {
		http.Error(w, "Journal is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func respondReportHTML(w http.ResponseWriter, report *models.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	state := "visible"
	if report.CurrentlyHidden {
		state = "hidden"
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, row := range [][2]string{
		{"Hides", strconv.FormatInt(report.Hides, 10)},
		{"Shows", strconv.FormatInt(report.Shows, 10)},
		{"Restores", strconv.FormatInt(report.Restores, 10)},
		{"Errors", strconv.FormatInt(report.Errors, 10)},
		{"Hidden total", utils.FormatRoundedUnit(utils.Seconds(report.HiddenSeconds))},
		{"Longest hidden", utils.FormatRoundedUnit(utils.Seconds(report.LongestHiddenSecs))},
	} {
		fmt.Fprintf(&b, `<div class="row"><span>%s</span><span>%s</span></div>`, row[0], row[1])
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Pointer is %s</div>`, state)

	_, _ = w.Write([]byte(b.String()))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>cursorhide</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #f5f5f5; padding: 20px; color: #333; }
        .report-box { max-width: 420px; background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 24px; }
        .row { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid #eee; }
        .total { margin-top: 16px; font-weight: 600; color: #3498db; }
    </style>
</head>
<body>
    <h1>cursorhide</h1>
    <div class="report-box">
        <div hx-get="/api/report?period=day" hx-trigger="load, every 5s">Loading...</div>
        <button hx-post="/api/show" hx-swap="none">Show pointer</button>
    </div>
</body>
</html>`

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.Errorf("Failed to encode JSON response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
