package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Boris-Bot69/fitness-ios/internal/workouts"
	"github.com/google/uuid"
)

// WorkoutSource loads a workout visible to the caller.
type WorkoutSource interface {
	Get(ctx context.Context, id uuid.UUID, sampleRate int) (*workouts.WorkoutDetail, error)
}

// Handlers handles HTTP requests for reports
type Handlers struct {
	source    WorkoutSource
	generator *Generator
}

func NewHandlers(source WorkoutSource, generator *Generator) *Handlers {
	return &Handlers{source: source, generator: generator}
}

// HandleWorkoutPDF handles GET /v1/workouts/{id}/report.pdf
func (h *Handlers) HandleWorkoutPDF(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid workout id")
		return
	}

	detail, err := h.source.Get(r.Context(), id, 0)
	if err != nil {
		switch {
		case errors.Is(err, workouts.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		case errors.Is(err, workouts.ErrWorkoutNotFound):
			writeError(w, http.StatusNotFound, "workout_not_found", "workout not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	data, err := h.generator.WorkoutPDF(detail)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to render report")
		return
	}

	filename := fmt.Sprintf("workout_%s.pdf", detail.ID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(data)), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
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
