package httpapi

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"coinclarity/internal/domain"
	"coinclarity/internal/orchestrator"
)

func TestJobsWS_StreamsEvents(t *testing.T) {
	fake := &fakeService{events: make(chan orchestrator.JobEvent, 8)}
	server := newTestServer(fake)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/jobs"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	sent := []orchestrator.JobEvent{
		{JobID: "job-1", Fingerprint: "ethereum:0xaa", State: domain.JobQueued},
		{JobID: "job-1", Fingerprint: "ethereum:0xaa", State: domain.JobRunning},
		{JobID: "job-1", Fingerprint: "ethereum:0xaa", State: domain.JobCompleted},
	}
	for _, e := range sent {
		fake.events <- e
	}

	for i, want := range sent {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var got orchestrator.JobEvent
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		if got.JobID != want.JobID || got.State != want.State {
			t.Errorf("event %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestJobsWS_ClientCloseReleasesSubscription(t *testing.T) {
	fake := &fakeService{events: make(chan orchestrator.JobEvent, 8)}
	server := newTestServer(fake)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/jobs"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer resp.Body.Close()

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	// The handler notices the close and returns; pushing more events
	// must not block anyone.
	fake.events <- orchestrator.JobEvent{JobID: "job-2", State: domain.JobQueued}
}
