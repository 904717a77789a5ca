package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tkresnik/aria-core/core/texttospeech"
)

// speakTestServer answers the speak control protocol: every Speak message is
// echoed back as one binary audio chunk and every Flush is confirmed with a
// Flushed message.
func speakTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Token test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}

			switch msg.Type {
			case "Speak":
				if err := conn.WriteMessage(websocket.BinaryMessage, []byte(msg.Text)); err != nil {
					return
				}
			case "Flush":
				if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Flushed"}`)); err != nil {
					return
				}
			case "Close":
				return
			}
		}
	}))
}

func wsEndpoint(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestGenerator(t *testing.T, server *httptest.Server, opts ...texttospeech.SynthesisOption) texttospeech.SpeechGenerator {
	t.Helper()

	client, err := NewSynthesisClient(WithEndpoint(wsEndpoint(server)))
	if err != nil {
		t.Fatalf("failed to create synthesis client: %v", err)
	}

	generator, err := client.NewSpeechGenerator(context.Background(), opts...)
	if err != nil {
		t.Fatalf("failed to open speech generator: %v", err)
	}
	return generator
}

func TestSpeechGeneratorStreamsAudioAndEnds(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	server := speakTestServer(t)
	defer server.Close()

	audioChunks := make(chan []byte, 4)
	marks := make(chan string, 4)
	ended := make(chan struct{})

	generator := newTestGenerator(t, server,
		texttospeech.WithAudioCallback(func(chunk []byte) { audioChunks <- chunk }),
		texttospeech.WithMarkCallback(func(mark string) { marks <- mark }),
		texttospeech.WithSpeechEndedCallback(func() { close(ended) }),
		texttospeech.WithErrorCallback(func(err error) { t.Errorf("unexpected error: %v", err) }),
	)

	if err := generator.SendText("Hello, "); err != nil {
		t.Fatalf("failed to send text: %v", err)
	}
	if err := generator.SendText("world."); err != nil {
		t.Fatalf("failed to send text: %v", err)
	}
	if err := generator.EndOfText(); err != nil {
		t.Fatalf("failed to end text: %v", err)
	}

	for _, expected := range []string{"Hello, ", "world."} {
		select {
		case chunk := <-audioChunks:
			if string(chunk) != expected {
				t.Fatalf("expected audio %q, got %q", expected, chunk)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for audio %q", expected)
		}
	}

	select {
	case mark := <-marks:
		if mark != "Hello, world." {
			t.Fatalf("expected mark for the full segment, got %q", mark)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for mark")
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for speech to end")
	}
}

func TestSpeechGeneratorMarksSegments(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	server := speakTestServer(t)
	defer server.Close()

	marks := make(chan string, 4)
	ended := make(chan struct{})

	generator := newTestGenerator(t, server,
		texttospeech.WithMarkCallback(func(mark string) { marks <- mark }),
		texttospeech.WithSpeechEndedCallback(func() { close(ended) }),
		texttospeech.WithErrorCallback(func(err error) { t.Errorf("unexpected error: %v", err) }),
	)

	if err := generator.SendText("one"); err != nil {
		t.Fatalf("failed to send text: %v", err)
	}
	if err := generator.Mark(); err != nil {
		t.Fatalf("failed to mark: %v", err)
	}
	if err := generator.SendText("two"); err != nil {
		t.Fatalf("failed to send text: %v", err)
	}
	if err := generator.EndOfText(); err != nil {
		t.Fatalf("failed to end text: %v", err)
	}

	for _, expected := range []string{"one", "two"} {
		select {
		case mark := <-marks:
			if mark != expected {
				t.Fatalf("expected mark %q, got %q", expected, mark)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for mark %q", expected)
		}
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for speech to end")
	}
}

func TestSpeechGeneratorCancelIsQuiet(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	server := speakTestServer(t)
	defer server.Close()

	generator := newTestGenerator(t, server,
		texttospeech.WithErrorCallback(func(err error) { t.Errorf("unexpected error: %v", err) }),
	)

	if err := generator.SendText("never finished"); err != nil {
		t.Fatalf("failed to send text: %v", err)
	}
	if err := generator.Cancel(); err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}
	if err := generator.Cancel(); err != nil {
		t.Fatalf("expected repeated cancel to be a no-op, got %v", err)
	}

	if err := generator.SendText("too late"); err == nil {
		t.Fatalf("expected sends after cancel to fail")
	}

	// Give the read loop a moment; a cancelled teardown must not surface an
	// error through the callback.
	time.Sleep(100 * time.Millisecond)
}

func TestSpeechGeneratorEmptyTextEndsImmediately(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	server := speakTestServer(t)
	defer server.Close()

	ended := make(chan struct{})
	generator := newTestGenerator(t, server,
		texttospeech.WithSpeechEndedCallback(func() { close(ended) }),
	)

	if err := generator.EndOfText(); err != nil {
		t.Fatalf("failed to end text: %v", err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for empty synthesis to end")
	}

	if err := generator.SendText("late"); err == nil {
		t.Fatalf("expected sends after end of text to fail")
	}
}

func TestNewSpeechGeneratorWithoutAPIKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")

	client, err := NewSynthesisClient()
	if err != nil {
		t.Fatalf("failed to create synthesis client: %v", err)
	}

	if _, err := client.NewSpeechGenerator(context.Background()); err == nil {
		t.Fatalf("expected generator creation to fail without a key")
	}
}
