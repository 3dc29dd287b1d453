package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ayusman/mudra/internal/events"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a Store with a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testEnv struct {
	store   *store.Store
	metrics *metrics.Metrics
	handler *SessionHandler
}

func newTestEnv(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()

	s := newTestStore(t)
	m := metrics.NewUnregistered()
	d := events.NewDispatcher(m)
	d.Register(events.NewStoreRecorder(s))

	h := NewSessionHandler(Config{
		Store:    s,
		Defaults: gesture.DefaultConfig(),
		Options:  session.Options{Dispatcher: d, Metrics: m},
		TTL:      ttl,
	})
	t.Cleanup(h.Close)
	return &testEnv{store: s, metrics: m, handler: h}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) create(t *testing.T, body any) sessionResponse {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/sessions status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func frame(hands ...landmark.HandLandmarks) frameRequest {
	if hands == nil {
		hands = []landmark.HandLandmarks{}
	}
	return frameRequest{Hands: hands}
}

func TestSessionHandler_Create(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	t.Run("defaults", func(t *testing.T) {
		resp := env.create(t, nil)
		if resp.ID == "" || !resp.Active || resp.Source != store.SourceAPI {
			t.Errorf("unexpected response %+v", resp)
		}
		if resp.Config != gesture.DefaultConfig() {
			t.Errorf("config = %+v, want defaults", resp.Config)
		}
	})

	t.Run("partial override keeps other defaults", func(t *testing.T) {
		resp := env.create(t, `{"config": {"window_size": 3}}`)
		if resp.Config.WindowSize != 3 {
			t.Errorf("window_size = %d, want 3", resp.Config.WindowSize)
		}
		if resp.Config.MajorityThreshold != 0.8 {
			t.Errorf("majority_threshold = %f, want 0.8", resp.Config.MajorityThreshold)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/sessions", `{"config": {"window_size": 1}}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/sessions", `{"config":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	if got := testutil.ToFloat64(env.metrics.ActiveSessions); got != 2 {
		t.Errorf("active sessions gauge = %f, want 2", got)
	}
}

func TestSessionHandler_FramesConfirmAfterWindow(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	id := env.create(t, nil).ID

	for i := 1; i <= 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/frames", frame(landmark.FistLandmarks()))
		if rec.Code != http.StatusOK {
			t.Fatalf("frame %d status = %d, body = %s", i, rec.Code, rec.Body.String())
		}

		var resp frameResponse
		json.NewDecoder(rec.Body).Decode(&resp)

		if resp.Raw != gesture.Fist {
			t.Errorf("frame %d raw = %q, want FIST", i, resp.Raw)
		}
		wantConfirmed := gesture.None
		if i == 5 {
			wantConfirmed = gesture.Fist
		}
		if resp.Confirmed != wantConfirmed || resp.Changed != (i == 5) {
			t.Errorf("frame %d = %+v, want confirmed %q changed %v", i, resp, wantConfirmed, i == 5)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/events", nil)
	var listed listEventsResponse
	json.NewDecoder(rec.Body).Decode(&listed)
	if len(listed.Events) != 1 || listed.Events[0].Label != "FIST" {
		t.Errorf("events = %+v, want one FIST", listed.Events)
	}
}

func TestSessionHandler_InvalidFrame(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	id := env.create(t, nil).ID

	short := landmark.FistLandmarks()
	short.Points = short.Points[:20]

	tests := []struct {
		name      string
		body      frameRequest
		wantField string
		wantHand  *int
	}{
		{"twenty landmarks", frame(short), gesture.FieldLandmarks, new(int)},
		{"three hands", frame(landmark.FistLandmarks(), landmark.FistLandmarks(), landmark.FistLandmarks()), gesture.FieldHands, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/frames", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var resp errorResponse
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
			if (resp.Hand == nil) != (tt.wantHand == nil) || (resp.Hand != nil && *resp.Hand != *tt.wantHand) {
				t.Errorf("hand = %v, want %v", resp.Hand, tt.wantHand)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	var state liveSessionResponse
	json.NewDecoder(rec.Body).Decode(&state)
	if len(state.History) != 0 {
		t.Errorf("history = %v, want empty after rejected frames", state.History)
	}
}

func TestSessionHandler_Reset(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	id := env.create(t, `{"config": {"window_size": 2, "majority_threshold": 1}}`).ID

	for i := 0; i < 2; i++ {
		env.do(t, http.MethodPost, "/api/sessions/"+id+"/frames", frame(landmark.OpenPalmLandmarks()))
	}

	if rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/reset", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d, want 204", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	var state liveSessionResponse
	json.NewDecoder(rec.Body).Decode(&state)
	if state.Confirmed != gesture.None || len(state.History) != 0 {
		t.Errorf("state after reset = %+v", state)
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	id := env.create(t, nil).ID

	if rec := env.do(t, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", rec.Code)
	}

	sess, err := env.store.Sessions().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if sess.Active() {
		t.Error("deleted session should be ended in the store")
	}

	if rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/frames", frame()); rec.Code != http.StatusNotFound {
		t.Errorf("frames after delete status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/sessions/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE missing status = %d, want 404", rec.Code)
	}
	if got := testutil.ToFloat64(env.metrics.ActiveSessions); got != 0 {
		t.Errorf("active sessions gauge = %f, want 0", got)
	}
}

func TestSessionHandler_ListKeepsFullConfigAfterEnd(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	id := env.create(t, `{"config": {"thumb_vertical_margin": 0.05}}`).ID

	if rec := env.do(t, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/sessions status = %d", rec.Code)
	}
	var listed listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(listed.Sessions))
	}

	want := gesture.DefaultConfig()
	want.ThumbVerticalMargin = 0.05
	if got := listed.Sessions[0].Config; got != want {
		t.Errorf("listed config = %+v, want %+v", got, want)
	}
	if listed.Sessions[0].Active {
		t.Error("ended session listed as active")
	}
}

func TestSessionHandler_Expiry(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	id := env.create(t, nil).ID

	ended := func() bool {
		sess, err := env.store.Sessions().GetByID(id)
		return err == nil && !sess.Active()
	}
	deadline := time.Now().Add(2 * time.Second)
	for !ended() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !ended() {
		t.Fatal("idle session was not evicted")
	}

	if rec := env.do(t, http.MethodGet, "/api/sessions/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET expired status = %d, want 404", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/sessions", nil)
	var listed listSessionsResponse
	json.NewDecoder(rec.Body).Decode(&listed)
	if len(listed.Sessions) != 1 || listed.Sessions[0].Active || listed.Sessions[0].EndedAt == "" {
		t.Errorf("listed = %+v, want one ended session", listed.Sessions)
	}
}

func TestSessionHandler_Events(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	if rec := env.do(t, http.MethodGet, "/api/sessions/missing/events", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rec.Code)
	}

	id := env.create(t, nil).ID
	if rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/events?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/events?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var listed listEventsResponse
	json.NewDecoder(rec.Body).Decode(&listed)
	if listed.Events == nil || len(listed.Events) != 0 {
		t.Errorf("events = %v, want empty list", listed.Events)
	}
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPut, "/api/sessions", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/sessions/abc/frames", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/sessions/abc/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, nil)
		if rec.Code != tt.want {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}
