package trainingzones

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/Boris-Bot69/fitness-ios/internal/userctx"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
	"github.com/google/uuid"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")
)

// CreateRequest registers zone bounds. ValidFrom defaults to now; a past
// value back-dates the bounds so they apply to older workouts on patch.
type CreateRequest struct {
	Metric       string     `json:"metric"`
	ActivityType int        `json:"activityType"`
	Upper0Bound  float64    `json:"upper0Bound"`
	Upper1Bound  float64    `json:"upper1Bound"`
	Upper2Bound  float64    `json:"upper2Bound"`
	Upper3Bound  float64    `json:"upper3Bound"`
	ValidFrom    *time.Time `json:"validFrom,omitempty"`
}

type TrainingZoneDTO struct {
	ID           uuid.UUID `json:"id"`
	Metric       string    `json:"metric"`
	ActivityType int       `json:"activityType"`
	Upper0Bound  float64   `json:"upper0Bound"`
	Upper1Bound  float64   `json:"upper1Bound"`
	Upper2Bound  float64   `json:"upper2Bound"`
	Upper3Bound  float64   `json:"upper3Bound"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ListResponse struct {
	TrainingZones []TrainingZoneDTO `json:"trainingZones"`
}

// Service manages the history of zone bounds per owner.
type Service struct {
	store  storage.TrainingZonesStorage
	logger *slog.Logger
}

func NewService(store storage.TrainingZonesStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*TrainingZoneDTO, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	metric, err := zones.ParseMetric(strings.ToUpper(strings.TrimSpace(req.Metric)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	bounds := zones.Boundaries{req.Upper0Bound, req.Upper1Bound, req.Upper2Bound, req.Upper3Bound}
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	zone := &storage.TrainingZone{
		OwnerID:      ownerID,
		Metric:       string(metric),
		ActivityType: req.ActivityType,
		Upper0:       bounds[0],
		Upper1:       bounds[1],
		Upper2:       bounds[2],
		Upper3:       bounds[3],
	}
	if req.ValidFrom != nil {
		zone.CreatedAt = req.ValidFrom.UTC()
	}
	if err := s.store.CreateTrainingZone(ctx, zone); err != nil {
		return nil, err
	}

	s.logger.Info("trainingzones: registered", "owner", ownerID, "metric", zone.Metric, "activity_type", zone.ActivityType)
	dto := toDTO(*zone)
	return &dto, nil
}

func (s *Service) List(ctx context.Context) (*ListResponse, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.store.ListTrainingZones(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := &ListResponse{TrainingZones: make([]TrainingZoneDTO, 0, len(list))}
	for _, z := range list {
		out.TrainingZones = append(out.TrainingZones, toDTO(z))
	}
	return out, nil
}

// BoundariesAsOf returns the bounds that applied at the given time, falling
// back to the oldest registered ones. Nil when nothing is registered.
func (s *Service) BoundariesAsOf(ctx context.Context, ownerID string, metric zones.Metric, activityType int, at time.Time) (*zones.Boundaries, error) {
	z, err := s.store.TrainingZoneAsOf(ctx, ownerID, string(metric), activityType, at)
	if err != nil {
		return nil, fmt.Errorf("lookup training zone: %w", err)
	}
	if z == nil {
		return nil, nil
	}
	return &zones.Boundaries{z.Upper0, z.Upper1, z.Upper2, z.Upper3}, nil
}

func toDTO(z storage.TrainingZone) TrainingZoneDTO {
	return TrainingZoneDTO{
		ID:           z.ID,
		Metric:       z.Metric,
		ActivityType: z.ActivityType,
		Upper0Bound:  z.Upper0,
		Upper1Bound:  z.Upper1,
		Upper2Bound:  z.Upper2,
		Upper3Bound:  z.Upper3,
		CreatedAt:    z.CreatedAt,
	}
}

func ownerFromContext(ctx context.Context) (string, error) {
	ownerID, _ := userctx.GetUserID(ctx)
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", ErrUnauthorized
	}
	return ownerID, nil
}
