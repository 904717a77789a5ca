package deepgram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tkresnik/aria-core/core/speechtotext"
)

// listenTestServer accepts websocket connections and forwards every binary
// frame it receives.
func listenTestServer(t *testing.T, received chan<- []byte) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage {
				received <- msg
			}
		}
	}))
}

func TestReadLoopDoesNotClobberReplacementConnection(t *testing.T) {
	received := make(chan []byte, 1)
	server := listenTestServer(t, received)
	defer server.Close()

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
		if err != nil {
			t.Fatalf("failed to dial test server: %v", err)
		}
		return conn
	}

	client := NewTranscriptionClient()

	staleConn := dial()
	client.connMu.Lock()
	client.conn = staleConn
	client.lastAudioSent = time.Now()
	client.connMu.Unlock()

	staleErr := make(chan error, 1)
	go client.readAndProcessMessages(t.Context(), staleConn, speechtotext.TranscriptionOptions{
		ErrorCallback: func(err error) { staleErr <- err },
	})

	// A quick stop/start replaces the connection while the stale read loop is
	// still alive.
	replacement := dial()
	defer replacement.Close()
	client.connMu.Lock()
	client.conn = replacement
	client.connMu.Unlock()

	// Killing the stale connection makes its read loop run the teardown path.
	staleConn.Close()
	time.Sleep(100 * time.Millisecond)

	if err := client.SendAudio([]byte("frame")); err != nil {
		t.Fatalf("expected the replacement connection to stay installed, got %v", err)
	}
	select {
	case frame := <-received:
		if string(frame) != "frame" {
			t.Fatalf("expected frame to reach the server, got %q", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the frame to reach the server")
	}

	select {
	case err := <-staleErr:
		t.Fatalf("expected the stale read loop to stay quiet, got %v", err)
	default:
	}
}
