package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	OperationCreated  = "created"
	OperationExisting = "existing"
	OperationPatched  = "patched"
)

// WorkoutProcessed is published after every successful create or patch.
type WorkoutProcessed struct {
	EventID      uuid.UUID `json:"eventId"`
	WorkoutID    uuid.UUID `json:"workoutId"`
	ExternalID   string    `json:"externalId"`
	OwnerID      string    `json:"ownerId"`
	Operation    string    `json:"operation"`
	ActivityType int       `json:"activityType"`
	StartTime    time.Time `json:"startTime"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher delivers workout events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishWorkoutProcessed(ctx context.Context, evt WorkoutProcessed) error
	Close() error
}

// Encode returns the partition key and JSON value of evt.
func Encode(evt WorkoutProcessed) (key []byte, value []byte, err error) {
	value, err = json.Marshal(evt)
	if err != nil {
		return nil, nil, fmt.Errorf("encode workout event: %w", err)
	}
	return []byte(evt.OwnerID + "/" + evt.ExternalID), value, nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishWorkoutProcessed(context.Context, WorkoutProcessed) error { return nil }

func (NopPublisher) Close() error { return nil }
