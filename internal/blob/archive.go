package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const payloadContentType = "application/json"

// Archive stores raw workout payloads under
// <prefix><owner>/<externalID>/<workoutID>.json. Every workout row owns its
// object, so a create that loses the insert race never touches the winner's.
type Archive struct {
	store      Store
	prefix     string
	presignTTL int
}

func NewArchive(store Store, prefix string, presignTTLSeconds int) *Archive {
	if presignTTLSeconds <= 0 {
		presignTTLSeconds = 900
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archive{store: store, prefix: prefix, presignTTL: presignTTLSeconds}
}

// Key builds the object key. Owner and external id are path-escaped so an
// id can never address another owner's folder.
func (a *Archive) Key(ownerID, externalID string, workoutID uuid.UUID) string {
	return a.prefix + url.PathEscape(ownerID) + "/" + url.PathEscape(externalID) + "/" + workoutID.String() + ".json"
}

// Put uploads the payload of workout workoutID and returns its key.
func (a *Archive) Put(ctx context.Context, ownerID, externalID string, workoutID uuid.UUID, payload []byte) (string, error) {
	key := a.Key(ownerID, externalID, workoutID)
	if _, err := a.store.PutObject(ctx, key, payload, payloadContentType); err != nil {
		return "", fmt.Errorf("archive raw workout: %w", err)
	}
	return key, nil
}

func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	return a.store.GetObject(ctx, key)
}

// PresignURL returns a time limited download link for key.
func (a *Archive) PresignURL(ctx context.Context, key string) (string, error) {
	return a.store.PresignGet(ctx, key, a.presignTTL)
}
