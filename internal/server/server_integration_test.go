package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ayusman/mudra/internal/events"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
)

// The session cache runs a janitor goroutine for its whole lifetime.
var ignoreJanitor = goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run")

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func TestAPI_SessionWorkflowWithLiveFeed(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreJanitor)

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	m := metrics.NewUnregistered()
	d := events.NewDispatcher(m)
	d.Register(events.NewStoreRecorder(s))

	srv := New(Config{Store: s, Dispatcher: d, Metrics: m})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a session with a short window
	resp := postJSON(t, client, ts.URL+"/api/sessions", `{"config": {"window_size": 3, "majority_threshold": 0.6}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	// 2. Subscribe to the live feed for that session
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live?session=" + created.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, time.Second, 10*time.Millisecond)

	// 3. Stream thumbs-up frames until the label is confirmed
	body, err := json.Marshal(map[string]any{"hands": []landmark.HandLandmarks{landmark.ThumbsUpLandmarks()}})
	require.NoError(t, err)

	var last struct {
		Raw       string `json:"raw"`
		Confirmed string `json:"confirmed"`
		Changed   bool   `json:"changed"`
	}
	for i := 0; i < 3; i++ {
		resp = postJSON(t, client, ts.URL+"/api/sessions/"+created.ID+"/frames", string(body))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&last))
		resp.Body.Close()
	}
	assert.Equal(t, "THUMBS_UP", last.Confirmed)
	assert.True(t, last.Changed)

	// 4. The change arrives on the websocket
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg liveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, created.ID, msg.Session)
	assert.Equal(t, "THUMBS_UP", msg.Label)

	// 5. The change is recorded
	resp, err = client.Get(ts.URL + "/api/sessions/" + created.ID + "/events")
	require.NoError(t, err)
	var listed struct {
		Events []struct {
			Label string `json:"label"`
		} `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed.Events, 1)
	assert.Equal(t, "THUMBS_UP", listed.Events[0].Label)

	// 6. Health reports the live session
	resp, err = client.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)

	// 7. End the session
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	conn.Close()
}

func TestHub_FiltersBySession(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "?session=wanted"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Consume(events.Change{SessionID: "other", Label: "FIST", Timestamp: time.Now()}))
	require.NoError(t, hub.Consume(events.Change{SessionID: "wanted", Label: "HELLO", Timestamp: time.Now()}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg liveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "wanted", msg.Session)
	assert.Equal(t, "HELLO", msg.Label)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}

func TestHub_DropsClientWithFullQueue(t *testing.T) {
	hub := NewHub()

	slow := &liveClient{send: make(chan []byte, 1)}
	slow.send <- []byte("pending")
	fast := &liveClient{send: make(chan []byte, sendBuffer)}
	hub.clients[slow] = struct{}{}
	hub.clients[fast] = struct{}{}

	done := make(chan error, 1)
	go func() { done <- hub.Consume(events.Change{SessionID: "s1", Label: "FIST", Timestamp: time.Now()}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Consume blocked on a client that is not reading")
	}

	assert.Equal(t, 1, hub.Clients())
	_, ok := <-fast.send
	assert.True(t, ok, "the reading client still gets the change")

	<-slow.send
	_, open := <-slow.send
	assert.False(t, open, "the slow client's queue is closed")
}
