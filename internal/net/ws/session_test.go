package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	server "rift-and-ruin/server"
	"rift-and-ruin/server/internal/telemetry"
)

func newTestServer(t *testing.T) (*server.Hub, *httptest.Server) {
	t.Helper()

	hub, err := server.NewHub(server.HubConfig{
		Logger: telemetry.LoggerFunc(func(string, ...any) {}),
	})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	t.Cleanup(func() { close(stop) })

	handler := NewHandler(hub, HandlerConfig{Logger: telemetry.LoggerFunc(func(string, ...any) {})})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	return hub, srv
}

func websocketURL(t *testing.T, baseURL, actorID, session string) string {
	t.Helper()

	parsed, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/"
	query := parsed.Query()
	query.Set("id", actorID)
	query.Set("session", session)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func dial(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(rawURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

// readFrame consumes frames until one matching the wanted type arrives.
// State broadcasts interleave with replies, so callers cannot rely on
// ordering.
func readFrame(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading for %q frame: %v", wantType, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if decoded["type"] == wantType {
			return decoded
		}
	}
}

func TestHandleRequiresCredentials(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request without id: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "?id=raider-1")
	if err != nil {
		t.Fatalf("request without session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without session, got %d", resp.StatusCode)
	}
}

func TestServeRejectsInvalidSession(t *testing.T) {
	hub, srv := newTestServer(t)

	join, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	conn := dial(t, websocketURL(t, srv.URL, join.ID, "forged-token"))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, readErr := conn.ReadMessage()
	if readErr == nil {
		t.Fatalf("expected the connection to close")
	}
	if !websocket.IsCloseError(readErr, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", readErr)
	}
}

func TestServeStreamsStateSnapshots(t *testing.T) {
	hub, srv := newTestServer(t)

	join, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	conn := dial(t, websocketURL(t, srv.URL, join.ID, join.Session))
	frame := readFrame(t, conn, "state")
	if frame["ver"] != float64(1) {
		t.Fatalf("expected protocol version 1, got %v", frame["ver"])
	}
	if hash, ok := frame["hash"].(string); !ok || hash == "" {
		t.Fatalf("expected a state hash, got %v", frame["hash"])
	}
}

func TestServeAcksCommandSequence(t *testing.T) {
	hub, srv := newTestServer(t)

	join, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	conn := dial(t, websocketURL(t, srv.URL, join.ID, join.Session))

	input := `{"ver":1,"type":"input","dx":1,"dy":0,"seq":1}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(input)); err != nil {
		t.Fatalf("write input: %v", err)
	}
	ack := readFrame(t, conn, "commandAck")
	if ack["seq"] != float64(1) {
		t.Fatalf("expected ack for seq 1, got %v", ack["seq"])
	}

	// Replaying the same sequence must ack again without staging twice.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(input)); err != nil {
		t.Fatalf("rewrite input: %v", err)
	}
	ack = readFrame(t, conn, "commandAck")
	if ack["seq"] != float64(1) {
		t.Fatalf("expected duplicate ack for seq 1, got %v", ack["seq"])
	}
}

func TestServeAnswersHeartbeat(t *testing.T) {
	hub, srv := newTestServer(t)

	join, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	conn := dial(t, websocketURL(t, srv.URL, join.ID, join.Session))

	sentAt := time.Now().UnixMilli()
	beat, err := json.Marshal(map[string]any{"ver": 1, "type": "heartbeat", "sentAt": sentAt})
	if err != nil {
		t.Fatalf("marshal heartbeat: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, beat); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}

	frame := readFrame(t, conn, "heartbeat")
	if frame["clientTime"] != float64(sentAt) {
		t.Fatalf("expected clientTime echo %d, got %v", sentAt, frame["clientTime"])
	}
	if rtt, ok := frame["rtt"].(float64); !ok || rtt < 0 {
		t.Fatalf("expected non-negative rtt, got %v", frame["rtt"])
	}
}

func TestServeDisconnectsOnVersionMismatch(t *testing.T) {
	hub, srv := newTestServer(t)

	join, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	conn := dial(t, websocketURL(t, srv.URL, join.ID, join.Session))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ver":9,"type":"input"}`)); err != nil {
		t.Fatalf("write mismatched input: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.HasActor(join.ID) {
		if time.Now().After(deadline) {
			t.Fatalf("expected session teardown after version mismatch")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
