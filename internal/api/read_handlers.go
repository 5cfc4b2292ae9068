package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/daybrew/pulse/internal/database"
	"github.com/daybrew/pulse/internal/models"
)

type briefingResponse struct {
	Date     string                    `json:"date"`
	Slot     models.Slot               `json:"slot"`
	Snapshot *models.SentimentSnapshot `json:"snapshot"`
	TLDR     *models.BriefingTLDR      `json:"tldr"`
	Items    []models.ClassifiedItem   `json:"items"`
}

// BriefingHandler handles GET /api/briefing. It assembles one briefing page:
// the day's snapshot, the slot's TL;DR, and the ranked items. date defaults to
// the current UTC day, slot to the current one.
func (h *Handler) BriefingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	now := h.now().UTC()
	date, ok := dateParam(w, r, now.Format("2006-01-02"))
	if !ok {
		return
	}

	slot := models.CurrentSlot(now)
	if raw := r.URL.Query().Get("slot"); raw != "" {
		parsed, err := models.ParseSlot(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slot = parsed
	}

	snapshot, err := h.store.GetSnapshot(r.Context(), date)
	if err != nil {
		h.logger.Error("briefing snapshot query failed", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}

	tldr, err := h.store.GetTLDR(r.Context(), date, slot)
	if err != nil {
		h.logger.Error("briefing tldr query failed", "date", date, "slot", slot, "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}

	items, err := h.store.ListItems(r.Context(), database.ItemFilter{
		Date:  date,
		Limit: limitParam(r, 50, 200),
	})
	if err != nil {
		h.logger.Error("briefing items query failed", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}
	if items == nil {
		items = []models.ClassifiedItem{}
	}

	writeJSON(w, http.StatusOK, briefingResponse{
		Date:     date,
		Slot:     slot,
		Snapshot: snapshot,
		TLDR:     tldr,
		Items:    items,
	})
}

// ItemsHandler handles GET /api/items with date, source, category, tips, and
// limit filters.
func (h *Handler) ItemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	date, ok := dateParam(w, r, "")
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := database.ItemFilter{
		Date:     date,
		TipsOnly: query.Get("tips") == "true" || query.Get("tips") == "1",
		Limit:    limitParam(r, 50, 200),
	}

	if raw := query.Get("source"); raw != "" {
		if !models.Source(raw).IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid source")
			return
		}
		filter.Source = raw
	}
	if raw := query.Get("category"); raw != "" {
		if !models.Category(raw).IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid category")
			return
		}
		filter.Category = raw
	}

	items, err := h.store.ListItems(r.Context(), filter)
	if err != nil {
		h.logger.Error("items query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}
	if items == nil {
		items = []models.ClassifiedItem{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// EcosystemHandler handles GET /api/ecosystem, listing catalog entries most
// mentioned first, optionally narrowed by type.
func (h *Handler) EcosystemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var entryType models.EntryType
	if raw := r.URL.Query().Get("type"); raw != "" {
		entryType = models.EntryType(raw)
		if !entryType.IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid entry type")
			return
		}
	}

	entries, err := h.store.ListEcosystem(r.Context(), entryType, limitParam(r, 100, 500))
	if err != nil {
		h.logger.Error("ecosystem query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}
	if entries == nil {
		entries = []models.EcosystemEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// ChangelogHandler handles GET /api/changelog, returning the newest classified
// releases first.
func (h *Handler) ChangelogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	highlights, err := h.store.RecentChangelog(r.Context(), int(limitParam(r, 10, 50)))
	if err != nil {
		h.logger.Error("changelog query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}
	if highlights == nil {
		highlights = []models.ChangelogHighlight{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"releases": highlights, "count": len(highlights)})
}

// dateParam reads and validates the date query parameter, writing a 400 and
// returning ok=false when it is malformed. An absent parameter yields the
// fallback.
func dateParam(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return fallback, true
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return "", false
	}
	return raw, true
}

// limitParam reads the limit query parameter, clamped to (0, max]. Absent or
// malformed values yield the fallback.
func limitParam(r *http.Request, fallback, max uint64) uint64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || limit == 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
