package workouts

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Handlers struct {
	service      *Service
	maxBodyBytes int64
}

func NewHandlers(service *Service, maxBodyBytes int64) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 20 << 20
	}
	return &Handlers{service: service, maxBodyBytes: maxBodyBytes}
}

// HandleCreate stores a raw HealthKit workout.
// POST /v1/workouts
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	resp, created, err := h.service.Create(r.Context(), raw)
	if err != nil {
		h.handleError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// HandlePatch recomputes an existing workout from a new raw payload.
// PATCH /v1/workouts
func (h *Handlers) HandlePatch(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Patch(r.Context(), raw)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleList returns the caller's workouts.
// GET /v1/workouts?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	from, err := parseBound(r.URL.Query().Get("from"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid from")
		return
	}
	to, err := parseBound(r.URL.Query().Get("to"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid to")
		return
	}

	resp, err := h.service.List(r.Context(), from, to)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet returns one workout with its combined profile.
// GET /v1/workouts/{id}?sample_rate=<seconds>
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sampleRate := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("sample_rate")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "sample_rate must be an integer")
			return
		}
		sampleRate = v
		if sampleRate == 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "sample_rate must be positive")
			return
		}
	}

	resp, err := h.service.Get(r.Context(), id, sampleRate)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRaw returns the unmodified payload of a workout.
// GET /v1/workouts/{id}/raw?redirect=1
func (h *Handlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	redirect := r.URL.Query().Get("redirect") == "1"

	payload, err := h.service.Raw(r.Context(), id, redirect)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if payload.RedirectURL != "" {
		http.Redirect(w, r, payload.RedirectURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload.Data)
}

// ============================================================================
// Error handling
// ============================================================================

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "workout_not_found", "workout not found")
	case errors.Is(err, ErrParseFailed):
		writeError(w, http.StatusUnprocessableEntity, "parse_failed", err.Error())
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// ============================================================================
// Helpers
// ============================================================================

func (h *Handlers) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return nil, false
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "empty body")
		return nil, false
	}
	return raw, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid workout id")
		return uuid.Nil, false
	}
	return id, true
}

// parseBound accepts RFC 3339 or YYYY-MM-DD. A date used as the upper bound
// covers the whole day.
func parseBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
