package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"freestylecal/internal/domain/event"
	"freestylecal/internal/ports"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/catalog"
)

const exportBaseName = "eventos_freestyle"

type handler struct {
	reader EventReader
}

type eventResponse struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	City            string `json:"city"`
	Country         string `json:"country"`
	Venue           string `json:"venue"`
	Organizer       string `json:"organizer"`
	OfficialLink    string `json:"official_link"`
	Description     string `json:"description"`
	ScrapeTimestamp string `json:"scrape_timestamp"`
}

type listResponse struct {
	Success bool            `json:"success"`
	Total   int             `json:"total"`
	Events  []eventResponse `json:"events"`
}

type eventDetailResponse struct {
	Success bool          `json:"success"`
	Event   eventResponse `json:"event"`
}

type statsResponse struct {
	Success bool          `json:"success"`
	Stats   catalog.Stats `json:"stats"`
}

type facetsResponse struct {
	Success bool `json:"success"`
	catalog.Facets
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func toResponse(e event.Event) eventResponse {
	return eventResponse{
		ID:              e.ID,
		Name:            e.Name,
		Date:            e.Date,
		Time:            e.Time,
		City:            e.City,
		Country:         e.Country,
		Venue:           e.Venue,
		Organizer:       e.Organizer,
		OfficialLink:    e.OfficialLink,
		Description:     e.Description,
		ScrapeTimestamp: e.ScrapeTimestamp,
	}
}

func toResponses(events []event.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	return out
}

// filterFromQuery accepts both the Spanish parameter names used by the
// web calendar and their English equivalents.
func filterFromQuery(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	first := func(keys ...string) string {
		for _, key := range keys {
			if v := strings.TrimSpace(q.Get(key)); v != "" {
				return v
			}
		}
		return ""
	}
	return catalog.Filter{
		Country:   first("pais", "country"),
		Organizer: first("organizador", "organizer"),
		DateFrom:  first("fecha_desde", "from"),
		DateTo:    first("fecha_hasta", "to"),
	}
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "event catalog is not configured")
		return
	}

	events, err := h.reader.List(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Total: len(events), Events: toResponses(events)})
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "event catalog is not configured")
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	found, err := h.reader.Get(r.Context(), id)
	switch {
	case errors.Is(err, ports.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "evento no encontrado")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eventDetailResponse{Success: true, Event: toResponse(found)})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "event catalog is not configured")
		return
	}

	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

func (h *handler) upcoming(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "event catalog is not configured")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := h.reader.Upcoming(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Total: len(events), Events: toResponses(events)})
}

func (h *handler) facets(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "event catalog is not configured")
		return
	}

	facets, err := h.reader.Facets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, facetsResponse{Success: true, Facets: facets})
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "event catalog is not configured")
		return
	}

	format, err := aggregation.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.reader.List(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := aggregation.Write(&buf, format, events); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportBaseName+"."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
