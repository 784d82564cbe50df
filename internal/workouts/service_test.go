package workouts

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/blob"
	"github.com/Boris-Bot69/fitness-ios/internal/config"
	"github.com/Boris-Bot69/fitness-ios/internal/events"
	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/Boris-Bot69/fitness-ios/internal/storage/memory"
	"github.com/Boris-Bot69/fitness-ios/internal/userctx"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
)

const fixtureUUID = "5B3A7C2E-0D1F-4B6A-9E21-7F0C3D9A1B11"

type stubZones struct {
	mu     sync.Mutex
	bounds map[zones.Metric]*zones.Boundaries
}

func (s *stubZones) set(metric zones.Metric, b zones.Boundaries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounds == nil {
		s.bounds = make(map[zones.Metric]*zones.Boundaries)
	}
	s.bounds[metric] = &b
}

func (s *stubZones) BoundariesAsOf(_ context.Context, _ string, metric zones.Metric, _ int, _ time.Time) (*zones.Boundaries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds[metric], nil
}

type recordingPublisher struct {
	mu  sync.Mutex
	ops []string
}

func (p *recordingPublisher) PublishWorkoutProcessed(_ context.Context, evt events.WorkoutProcessed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, evt.Operation)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func readWorkout(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("testdata/workout.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return raw
}

func withExternalID(raw []byte, id string) []byte {
	return bytes.ReplaceAll(raw, []byte(fixtureUUID), []byte(id))
}

func newTestService(lookup ZoneLookup) (*Service, *memory.MemoryStorage) {
	mem := memory.New()
	svc := NewService(mem, lookup, config.PipelineConfig{
		SamplePeriodSeconds:  10,
		MaxSampleRateSeconds: 300,
		DistanceUnitMeters:   1000,
	}, nil)
	return svc, mem
}

func newTestMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/workouts", h.HandleCreate)
	mux.HandleFunc("PATCH /v1/workouts", h.HandlePatch)
	mux.HandleFunc("GET /v1/workouts", h.HandleList)
	mux.HandleFunc("GET /v1/workouts/{id}", h.HandleGet)
	mux.HandleFunc("GET /v1/workouts/{id}/raw", h.HandleRaw)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target, owner string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if owner != "" {
		req = req.WithContext(userctx.WithUserID(req.Context(), owner))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) WorkoutDetail {
	t.Helper()
	var d WorkoutDetail
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	return d
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestCreateWorkoutDerivesArtifacts(t *testing.T) {
	lookup := &stubZones{}
	lookup.set(zones.MetricHeartRate, zones.Boundaries{110, 130, 150, 170})
	svc, _ := newTestService(lookup)
	mux := newTestMux(NewHandlers(svc, 0))

	w := do(t, mux, http.MethodPost, "/v1/workouts", "userA", readWorkout(t))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	d := decodeDetail(t, w)

	if d.ExternalID != fixtureUUID || d.OwnerID != "userA" {
		t.Fatalf("unexpected identity %s/%s", d.ExternalID, d.OwnerID)
	}
	if d.Kcal == nil || *d.Kcal != 55 {
		t.Fatalf("expected kcal 55, got %v", d.Kcal)
	}
	if len(d.CombinedProfile) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(d.CombinedProfile))
	}
	if len(d.KilometerPace) != 2 {
		t.Fatalf("expected 2 pace segments, got %d", len(d.KilometerPace))
	}
	if math.Abs(d.PaceMin-8) > 1e-9 || math.Abs(d.PaceMax-50) > 1e-9 {
		t.Fatalf("expected pace 8..50, got %v..%v", d.PaceMin, d.PaceMax)
	}

	hr := d.TrainingZones.HeartRate
	if hr == nil {
		t.Fatal("expected heart rate distribution")
	}
	if got := hr.Counts(); got != [5]int{1, 1, 1, 1, 2} || hr.Total != 6 {
		t.Fatalf("unexpected distribution %+v", hr)
	}
	if d.TrainingZones.Speed != nil {
		t.Fatal("expected no speed distribution without boundaries")
	}
	if d.MainHeartRateZone == nil || *d.MainHeartRateZone != 4 {
		t.Fatalf("expected main zone 4, got %v", d.MainHeartRateZone)
	}
	if len(d.RawStreams.Distance) != 6 || len(d.RawStreams.HeartRate) != 6 {
		t.Fatalf("unexpected raw streams %+v", d.RawStreams)
	}
}

func TestCreateWorkoutIsIdempotent(t *testing.T) {
	svc, mem := newTestService(nil)
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)
	mux := newTestMux(NewHandlers(svc, 0))
	raw := readWorkout(t)

	first := do(t, mux, http.MethodPost, "/v1/workouts", "userA", raw)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	second := do(t, mux, http.MethodPost, "/v1/workouts", "userA", raw)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing workout, got %d", second.Code)
	}

	a, b := decodeDetail(t, first), decodeDetail(t, second)
	if a.ID != b.ID || !a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) {
		t.Fatalf("expected the stored record back, got %s and %s", a.ID, b.ID)
	}

	list, err := mem.ListWorkouts(context.Background(), storageFilter("userA"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 stored workout, got %d", len(list))
	}

	// the same appleUUID under another owner is a different workout
	other := do(t, mux, http.MethodPost, "/v1/workouts", "userB", raw)
	if other.Code != http.StatusCreated {
		t.Fatalf("expected 201 for other owner, got %d", other.Code)
	}

	if len(pub.ops) != 3 || pub.ops[0] != events.OperationCreated || pub.ops[1] != events.OperationExisting {
		t.Fatalf("unexpected published operations %v", pub.ops)
	}
}

func TestPatchWorkout(t *testing.T) {
	lookup := &stubZones{}
	svc, _ := newTestService(lookup)
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)
	mux := newTestMux(NewHandlers(svc, 0))
	raw := readWorkout(t)

	created := decodeDetail(t, do(t, mux, http.MethodPost, "/v1/workouts", "userA", raw))
	if created.TrainingZones.HeartRate != nil {
		t.Fatal("expected no zones before registration")
	}

	lookup.set(zones.MetricHeartRate, zones.Boundaries{110, 130, 150, 170})
	patchBody := bytes.Replace(raw, []byte(`"doubleValue": 55.0`), []byte(`"doubleValue": 60.0`), 1)
	w := do(t, mux, http.MethodPatch, "/v1/workouts", "userA", patchBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	patched := decodeDetail(t, w)

	if patched.ID != created.ID {
		t.Fatalf("patch changed identity: %s != %s", patched.ID, created.ID)
	}
	if patched.Kcal == nil || *patched.Kcal != 60 {
		t.Fatalf("expected kcal 60 after patch, got %v", patched.Kcal)
	}
	if patched.TrainingZones.HeartRate == nil {
		t.Fatal("expected zones after patch")
	}

	rawResp := do(t, mux, http.MethodGet, "/v1/workouts/"+created.ID.String()+"/raw", "userA", nil)
	if rawResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for raw, got %d", rawResp.Code)
	}
	if !bytes.Equal(rawResp.Body.Bytes(), raw) {
		t.Fatal("patch must keep the original raw payload")
	}

	if pub.ops[len(pub.ops)-1] != events.OperationPatched {
		t.Fatalf("expected patched event, got %v", pub.ops)
	}
}

func TestPatchUnknownWorkoutIsNotFound(t *testing.T) {
	svc, _ := newTestService(nil)
	mux := newTestMux(NewHandlers(svc, 0))

	w := do(t, mux, http.MethodPatch, "/v1/workouts", "userA", readWorkout(t))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "workout_not_found" {
		t.Fatalf("expected workout_not_found, got %s", code)
	}
}

func TestMalformedPayloadIsUnprocessable(t *testing.T) {
	svc, mem := newTestService(nil)
	mux := newTestMux(NewHandlers(svc, 0))

	cases := map[string][]byte{
		"not json":        []byte(`{"appleUUID":`),
		"missing keys":    []byte(`{"appleUUID":"x","activityType":37}`),
		"bad start date":  bytes.Replace(readWorkout(t), []byte(`"startDate": "2021-06-07 18:00:00.0000"`), []byte(`"startDate": "yesterday"`), 1),
		"empty appleUUID": withExternalID(readWorkout(t), ""),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			for _, method := range []string{http.MethodPost, http.MethodPatch} {
				w := do(t, mux, method, "/v1/workouts", "userA", body)
				if w.Code != http.StatusUnprocessableEntity {
					t.Fatalf("%s: expected 422, got %d body=%s", method, w.Code, w.Body.String())
				}
				if code := errorCode(t, w); code != "parse_failed" {
					t.Fatalf("%s: expected parse_failed, got %s", method, code)
				}
			}
		})
	}

	list, _ := mem.ListWorkouts(context.Background(), storageFilter("userA"))
	if len(list) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(list))
	}
}

func TestCreateRequiresOwner(t *testing.T) {
	svc, _ := newTestService(nil)
	mux := newTestMux(NewHandlers(svc, 0))

	w := do(t, mux, http.MethodPost, "/v1/workouts", "", readWorkout(t))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateRejectsLargeBody(t *testing.T) {
	svc, _ := newTestService(nil)
	mux := newTestMux(NewHandlers(svc, 64))

	w := do(t, mux, http.MethodPost, "/v1/workouts", "userA", readWorkout(t))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestGetWorkoutSampleRate(t *testing.T) {
	svc, _ := newTestService(nil)
	mux := newTestMux(NewHandlers(svc, 0))
	created := decodeDetail(t, do(t, mux, http.MethodPost, "/v1/workouts", "userA", readWorkout(t)))
	path := "/v1/workouts/" + created.ID.String()

	w := do(t, mux, http.MethodGet, path+"?sample_rate=20", "userA", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	d := decodeDetail(t, w)
	if d.SampleRate != 20 || len(d.CombinedProfile) != 3 {
		t.Fatalf("expected 3 buckets at 20s, got %d at %v", len(d.CombinedProfile), d.SampleRate)
	}
	if len(d.KilometerPace) != 2 {
		t.Fatalf("stored pace must not depend on sample_rate, got %d segments", len(d.KilometerPace))
	}

	for _, q := range []string{"?sample_rate=0", "?sample_rate=-5", "?sample_rate=301", "?sample_rate=abc"} {
		if w := do(t, mux, http.MethodGet, path+q, "userA", nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}

	if w := do(t, mux, http.MethodGet, path, "userB", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", w.Code)
	}
	if w := do(t, mux, http.MethodGet, "/v1/workouts/not-a-uuid", "userA", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestListWorkouts(t *testing.T) {
	svc, _ := newTestService(nil)
	mux := newTestMux(NewHandlers(svc, 0))
	raw := readWorkout(t)

	do(t, mux, http.MethodPost, "/v1/workouts", "userA", raw)
	do(t, mux, http.MethodPost, "/v1/workouts", "userA", withExternalID(raw, "second"))
	do(t, mux, http.MethodPost, "/v1/workouts", "userB", withExternalID(raw, "third"))

	w := do(t, mux, http.MethodGet, "/v1/workouts?from=2021-06-07&to=2021-06-07", "userA", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Workouts) != 2 {
		t.Fatalf("expected 2 workouts for userA, got %d", len(resp.Workouts))
	}

	w = do(t, mux, http.MethodGet, "/v1/workouts?from=2021-06-08", "userA", nil)
	resp = ListResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Workouts) != 0 {
		t.Fatalf("expected no workouts after the range, got %d", len(resp.Workouts))
	}

	if w := do(t, mux, http.MethodGet, "/v1/workouts?from=07.06.2021", "userA", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestRawPayloadFromArchive(t *testing.T) {
	svc, _ := newTestService(nil)
	store := blob.NewMemoryStore()
	svc.SetArchive(blob.NewArchive(store, "raw-workouts/", 120))
	mux := newTestMux(NewHandlers(svc, 0))
	raw := readWorkout(t)

	created := decodeDetail(t, do(t, mux, http.MethodPost, "/v1/workouts", "userA", raw))
	path := "/v1/workouts/" + created.ID.String() + "/raw"

	key := "raw-workouts/userA/" + fixtureUUID + "/" + created.ID.String() + ".json"
	if _, err := store.GetObject(context.Background(), key); err != nil {
		t.Fatalf("expected archived object: %v", err)
	}

	w := do(t, mux, http.MethodGet, path, "userA", nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), raw) {
		t.Fatalf("expected archived payload back, got %d", w.Code)
	}

	w = do(t, mux, http.MethodGet, path+"?redirect=1", "userA", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc == "" {
		t.Fatal("expected Location header")
	}

	if w := do(t, mux, http.MethodGet, path, "userB", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", w.Code)
	}
}

// lateDuplicateStore hides existing workouts from the pre-insert lookup, the
// way a concurrent create that commits in between would.
type lateDuplicateStore struct {
	*memory.MemoryStorage
}

func (lateDuplicateStore) GetWorkoutByExternalID(context.Context, string, string) (*storage.WorkoutRecord, error) {
	return nil, storage.ErrNotFound
}

func TestLosingCreateKeepsWinnersArchivedPayload(t *testing.T) {
	svc := NewService(lateDuplicateStore{memory.New()}, nil, config.PipelineConfig{
		SamplePeriodSeconds:  10,
		MaxSampleRateSeconds: 300,
		DistanceUnitMeters:   1000,
	}, nil)
	svc.SetArchive(blob.NewArchive(blob.NewMemoryStore(), "raw-workouts/", 120))
	mux := newTestMux(NewHandlers(svc, 0))

	first := readWorkout(t)
	second := bytes.Replace(first, []byte(`"doubleValue": 55.0`), []byte(`"doubleValue": 99.0`), 1)
	if bytes.Equal(first, second) {
		t.Fatal("fixture edit did not apply")
	}

	w := do(t, mux, http.MethodPost, "/v1/workouts", "userA", first)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	winner := decodeDetail(t, w)

	w = do(t, mux, http.MethodPost, "/v1/workouts", "userA", second)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", w.Code)
	}
	if got := decodeDetail(t, w); got.ID != winner.ID {
		t.Fatalf("expected stored workout %s, got %s", winner.ID, got.ID)
	}

	w = do(t, mux, http.MethodGet, "/v1/workouts/"+winner.ID.String()+"/raw", "userA", nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), first) {
		t.Fatalf("expected the first payload back, got %d %s", w.Code, w.Body.String())
	}
}

func storageFilter(owner string) storage.WorkoutFilter {
	return storage.WorkoutFilter{OwnerID: owner}
}
