package workouts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/blob"
	"github.com/Boris-Bot69/fitness-ios/internal/config"
	"github.com/Boris-Bot69/fitness-ios/internal/events"
	"github.com/Boris-Bot69/fitness-ios/internal/observability"
	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/Boris-Bot69/fitness-ios/internal/userctx"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
	"github.com/google/uuid"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrParseFailed     = errors.New("workout could not be parsed")
	ErrWorkoutNotFound = errors.New("workout not found")
)

// ZoneLookup resolves the zone boundaries an owner had registered at a given
// time. A nil result means none apply.
type ZoneLookup interface {
	BoundariesAsOf(ctx context.Context, ownerID string, metric zones.Metric, activityType int, at time.Time) (*zones.Boundaries, error)
}

// Service creates, patches and reads processed workouts.
type Service struct {
	store         storage.WorkoutsStorage
	zones         ZoneLookup
	pipeline      *Pipeline
	archive       *blob.Archive
	publisher     events.Publisher
	maxSampleRate int
	logger        *slog.Logger
}

// NewService creates a workouts service. zoneLookup may be nil, in which case
// no training zones are computed.
func NewService(store storage.WorkoutsStorage, zoneLookup ZoneLookup, cfg config.PipelineConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxRate := cfg.MaxSampleRateSeconds
	if maxRate <= 0 {
		maxRate = 300
	}
	return &Service{
		store:         store,
		zones:         zoneLookup,
		pipeline:      NewPipeline(logger, cfg.SamplePeriodSeconds, cfg.DistanceUnitMeters),
		publisher:     events.NopPublisher{},
		maxSampleRate: maxRate,
		logger:        logger,
	}
}

// SetArchive moves raw payloads to object storage instead of the database.
func (s *Service) SetArchive(a *blob.Archive) {
	s.archive = a
}

func (s *Service) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.NopPublisher{}
	}
	s.publisher = p
}

// Create derives a workout from raw and stores it with the raw payload. When
// the (appleUUID, owner) pair exists the stored workout is returned unchanged
// and created is false.
func (s *Service) Create(ctx context.Context, raw []byte) (detail *WorkoutDetail, created bool, err error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, false, err
	}

	startedAt := time.Now()
	defer func() { s.recordRun("create", startedAt, err) }()

	d, err := s.derive(ctx, ownerID, raw)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.store.GetWorkoutByExternalID(ctx, ownerID, d.ExternalID)
	switch {
	case err == nil:
		s.publish(ctx, events.OperationExisting, existing)
		detail, err = s.detail(existing, d.Period)
		return detail, false, err
	case !errors.Is(err, storage.ErrNotFound):
		return nil, false, err
	}

	rec, err := recordFromDerivation(d, ownerID)
	if err != nil {
		return nil, false, err
	}
	rec.ID = uuid.New()
	stored, created, err := s.store.CreateWorkout(ctx, rec, s.rawRow(ctx, rec, raw))
	if err != nil {
		return nil, false, err
	}

	op := events.OperationCreated
	if !created {
		op = events.OperationExisting
	}
	s.publish(ctx, op, stored)

	detail, err = s.detail(stored, d.Period)
	return detail, created, err
}

// Patch recomputes every derived field of an existing workout from raw. The
// stored raw payload is kept.
func (s *Service) Patch(ctx context.Context, raw []byte) (detail *WorkoutDetail, err error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	defer func() { s.recordRun("patch", startedAt, err) }()

	d, err := s.derive(ctx, ownerID, raw)
	if err != nil {
		return nil, err
	}
	rec, err := recordFromDerivation(d, ownerID)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateWorkoutDerived(ctx, rec)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorkoutNotFound, d.ExternalID)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OperationPatched, updated)
	return s.detail(updated, d.Period)
}

// Get returns a workout with its combined profile resampled at sampleRate
// seconds. Zero selects the default period.
func (s *Service) Get(ctx context.Context, id uuid.UUID, sampleRate int) (*WorkoutDetail, error) {
	period := s.pipeline.Period()
	if sampleRate != 0 {
		if sampleRate < 1 || sampleRate > s.maxSampleRate {
			return nil, fmt.Errorf("%w: sample_rate must be between 1 and %d", ErrInvalidRequest, s.maxSampleRate)
		}
		period = float64(sampleRate)
	}

	rec, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(rec, period)
}

// List returns the owner's workouts started within [from, to]. Zero bounds
// are open.
func (s *Service) List(ctx context.Context, from, to time.Time) (*ListResponse, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidRequest)
	}

	recs, err := s.store.ListWorkouts(ctx, storage.WorkoutFilter{OwnerID: ownerID, From: from, To: to})
	if err != nil {
		return nil, err
	}

	out := &ListResponse{Workouts: make([]WorkoutSummary, 0, len(recs))}
	for i := range recs {
		summary, _, err := summaryFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out.Workouts = append(out.Workouts, summary)
	}
	return out, nil
}

// Raw returns the payload a workout was created from. With redirect set and
// an archived payload, only a presigned link is returned.
func (s *Service) Raw(ctx context.Context, id uuid.UUID, redirect bool) (*RawPayload, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return nil, err
	}

	row, err := s.store.GetRawWorkout(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}

	if row.Payload != nil || row.ObjectKey == nil {
		return &RawPayload{Data: row.Payload}, nil
	}
	if s.archive == nil {
		return nil, fmt.Errorf("raw payload %s is archived but no blob store is configured", *row.ObjectKey)
	}
	if redirect {
		link, err := s.archive.PresignURL(ctx, *row.ObjectKey)
		if err != nil {
			return nil, err
		}
		return &RawPayload{RedirectURL: link}, nil
	}
	data, err := s.archive.Get(ctx, *row.ObjectKey)
	if err != nil {
		return nil, err
	}
	return &RawPayload{Data: data}, nil
}

// derive runs the pipeline with the boundaries active at the workout start.
func (s *Service) derive(ctx context.Context, ownerID string, raw []byte) (*Derivation, error) {
	ext, err := s.pipeline.Extract(raw)
	if err != nil {
		observability.RecordParseFailure()
		s.logger.Warn("workouts: parse failed", "owner", ownerID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	var bounds ZoneBounds
	if s.zones != nil {
		if bounds.HeartRate, err = s.zones.BoundariesAsOf(ctx, ownerID, zones.MetricHeartRate, ext.ActivityType, ext.StartTime); err != nil {
			return nil, err
		}
		if bounds.Speed, err = s.zones.BoundariesAsOf(ctx, ownerID, zones.MetricSpeed, ext.ActivityType, ext.StartTime); err != nil {
			return nil, err
		}
	}

	d := s.pipeline.Derive(ext, bounds)
	observability.RecordProfileBuckets(len(d.Profile))
	s.logger.Debug("workouts: derived",
		"external_id", ext.ExternalID,
		"buckets", len(d.Profile),
		"segments", len(d.Pace.Segments),
	)
	return d, nil
}

// rawRow keeps the payload in the database unless it could be archived. The
// object key carries rec.ID, so it must be set before the insert.
func (s *Service) rawRow(ctx context.Context, rec *storage.WorkoutRecord, raw []byte) *storage.RawWorkout {
	row := &storage.RawWorkout{Payload: raw}
	if s.archive == nil {
		return row
	}
	key, err := s.archive.Put(ctx, rec.OwnerID, rec.ExternalID, rec.ID, raw)
	if err != nil {
		s.logger.Warn("workouts: archive failed, keeping payload in database", "external_id", rec.ExternalID, "error", err)
		return row
	}
	return &storage.RawWorkout{ObjectKey: &key}
}

func (s *Service) owned(ctx context.Context, id uuid.UUID) (*storage.WorkoutRecord, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetWorkout(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, ErrWorkoutNotFound
	}
	return rec, nil
}

func (s *Service) detail(rec *storage.WorkoutRecord, period float64) (*WorkoutDetail, error) {
	d, err := detailFromRecord(rec)
	if err != nil {
		return nil, err
	}
	d.SampleRate = period
	d.CombinedProfile = s.pipeline.Profile(d.RawStreams, rec.StartTime, rec.EndTime, period)
	return d, nil
}

func (s *Service) publish(ctx context.Context, operation string, rec *storage.WorkoutRecord) {
	evt := events.WorkoutProcessed{
		EventID:      uuid.New(),
		WorkoutID:    rec.ID,
		ExternalID:   rec.ExternalID,
		OwnerID:      rec.OwnerID,
		Operation:    operation,
		ActivityType: rec.ActivityType,
		StartTime:    rec.StartTime,
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.publisher.PublishWorkoutProcessed(ctx, evt); err != nil {
		s.logger.Warn("workouts: publish failed", "workout_id", rec.ID, "operation", operation, "error", err)
	}
}

func (s *Service) recordRun(operation string, startedAt time.Time, err error) {
	result := observability.ResultOK
	if err != nil {
		result = observability.ResultError
	}
	observability.RecordPipelineRun(operation, result, time.Since(startedAt))
}

func ownerFromContext(ctx context.Context) (string, error) {
	ownerID, _ := userctx.GetUserID(ctx)
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", ErrUnauthorized
	}
	return ownerID, nil
}
