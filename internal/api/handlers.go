package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/daybrew/pulse/internal/database"
	"github.com/daybrew/pulse/internal/models"
	"github.com/daybrew/pulse/internal/pipeline"
	"github.com/daybrew/pulse/internal/telemetry"
	"log/slog"
)

// PipelineRunner triggers one aggregation run.
type PipelineRunner interface {
	Run(ctx context.Context, date string, slot models.Slot, force bool) (pipeline.Report, error)
}

// StatusStore is the persistence surface the HTTP handlers read and write.
type StatusStore interface {
	LatestSnapshot(ctx context.Context) (*models.SentimentSnapshot, error)
	GetSnapshot(ctx context.Context, date string) (*models.SentimentSnapshot, error)
	GetTLDR(ctx context.Context, date string, slot models.Slot) (*models.BriefingTLDR, error)
	ListItems(ctx context.Context, filter database.ItemFilter) ([]models.ClassifiedItem, error)
	ListEcosystem(ctx context.Context, entryType models.EntryType, limit uint64) ([]models.EcosystemEntry, error)
	RecentChangelog(ctx context.Context, limit int) ([]models.ChangelogHighlight, error)
	CountItemsBySource(ctx context.Context, date string) (map[string]int, error)
	UpsertTelemetry(ctx context.Context, entry models.ReviewTelemetryEntry) error
}

type Handler struct {
	runner PipelineRunner
	store  StatusStore
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(runner PipelineRunner, store StatusStore, logger *slog.Logger) *Handler {
	return &Handler{
		runner: runner,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AggregateHandler handles GET /api/cron/aggregate. The date is always the
// current UTC day; the slot defaults to the current one and force bypasses
// the idempotency skip.
func (h *Handler) AggregateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	now := h.now().UTC()
	date := now.Format("2006-01-02")
	force := r.URL.Query().Get("force") == "true" || r.URL.Query().Get("force") == "1"

	slot := models.CurrentSlot(now)
	if raw := r.URL.Query().Get("slot"); raw != "" {
		parsed, err := models.ParseSlot(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slot = parsed
	}

	report, err := h.runner.Run(r.Context(), date, slot, force)
	if err != nil {
		h.logger.Error("aggregation failed", "date", date, "slot", slot, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":      "Aggregation failed",
			"message":    err.Error(),
			"durationMs": report.DurationMs,
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// telemetryRecord is the wire shape of one posted review record. Counter
// fields are pointers so an absent field can fall back to values parsed from
// the raw markdown.
type telemetryRecord struct {
	PlanID          string   `json:"plan_id"`
	ReviewID        string   `json:"review_id"`
	ModelName       string   `json:"model_name"`
	ReviewType      string   `json:"review_type"`
	Timestamp       string   `json:"timestamp"`
	CriticalIssues  *int     `json:"critical_issues"`
	Improvements    *int     `json:"improvements"`
	Suggestions     *int     `json:"suggestions"`
	Strengths       *int     `json:"strengths"`
	Verdict         *string  `json:"verdict"`
	ConfidenceScore *float64 `json:"confidence_score"`
	DurationMs      *int64   `json:"duration_ms"`
	RawMarkdown     string   `json:"raw_markdown"`
}

// TelemetryHandler handles POST /api/telemetry. Records missing their
// identifying fields are skipped silently; the rest are upserted keyed by
// (plan_id, review_id).
func (h *Handler) TelemetryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var records []telemetryRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, "Expected array of entries")
		return
	}

	now := h.now().UTC()
	today := now.Format("2006-01-02")

	processed := 0
	for _, raw := range records {
		if raw.PlanID == "" || raw.ReviewID == "" || raw.ModelName == "" {
			continue
		}

		var parsed telemetry.ParsedReview
		if raw.RawMarkdown != "" {
			parsed = telemetry.ParseReviewMarkdown(raw.RawMarkdown)
		}

		entry := models.ReviewTelemetryEntry{
			Date:            recordDate(raw.Timestamp, today),
			PlanID:          raw.PlanID,
			ReviewID:        raw.ReviewID,
			ModelName:       raw.ModelName,
			ReviewType:      defaultString(raw.ReviewType, "unknown"),
			CriticalIssues:  intOr(raw.CriticalIssues, parsed.CriticalIssues),
			Improvements:    intOr(raw.Improvements, parsed.Improvements),
			Suggestions:     intOr(raw.Suggestions, parsed.Suggestions),
			Strengths:       intOr(raw.Strengths, parsed.Strengths),
			Verdict:         stringOr(raw.Verdict, parsed.Verdict),
			ConfidenceScore: floatOr(raw.ConfidenceScore, parsed.ConfidenceScore),
			DurationMs:      raw.DurationMs,
			FetchedAt:       now,
		}

		if err := h.store.UpsertTelemetry(r.Context(), entry); err != nil {
			h.logger.Error("telemetry upsert failed",
				"plan_id", entry.PlanID, "review_id", entry.ReviewID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Processing failed",
				"message": err.Error(),
			})
			return
		}
		processed++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": processed,
	})
}

type healthResponse struct {
	Status           string         `json:"status"`
	Connected        bool           `json:"connected"`
	LastSnapshotDate string         `json:"lastSnapshotDate,omitempty"`
	HasSummary       bool           `json:"hasSummary"`
	SampleSize       int            `json:"sampleSize"`
	SourceCounts     map[string]int `json:"sourceCountsToday,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// HealthHandler handles GET /api/health. A database failure degrades the
// response instead of failing it so uptime checks can still read the status.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := healthResponse{Status: "ok", Connected: true}

	snapshot, err := h.store.LatestSnapshot(r.Context())
	if err != nil {
		h.logger.Error("health check query failed", "error", err)
		resp.Status = "degraded"
		resp.Connected = false
		resp.Error = err.Error()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if snapshot != nil {
		resp.LastSnapshotDate = snapshot.Date
		resp.HasSummary = snapshot.Summary != ""
		resp.SampleSize = snapshot.SampleSize
	}

	today := h.now().UTC().Format("2006-01-02")
	counts, err := h.store.CountItemsBySource(r.Context(), today)
	if err != nil {
		h.logger.Warn("source count query failed", "error", err)
	} else {
		resp.SourceCounts = counts
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func recordDate(timestamp, fallback string) string {
	if len(timestamp) >= 10 {
		if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return fallback
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func intOr(direct *int, parsed int) int {
	if direct != nil {
		return *direct
	}
	return parsed
}

func stringOr(direct, parsed *string) string {
	if direct != nil {
		return *direct
	}
	if parsed != nil {
		return *parsed
	}
	return ""
}

func floatOr(direct, parsed *float64) *float64 {
	if direct != nil {
		return direct
	}
	return parsed
}
