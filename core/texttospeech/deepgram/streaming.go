package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tkresnik/aria-core/core/audio"
	"github.com/tkresnik/aria-core/core/texttospeech"
)

// speechGenerator is one open speak connection. Text segments accumulate in
// segments until the provider confirms each flush, so marks fire only after
// all audio for the preceding text has been produced.
type speechGenerator struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	segments   []string
	segmentsMu sync.Mutex

	options texttospeech.SynthesisOptions

	textComplete bool
	cancelled    bool
	closed       bool
}

// NewSpeechGenerator opens a websocket connection and returns a generator
// bound to it. Synthesized audio is delivered through the AudioCallback until
// EndOfText drains or Cancel drops the queued text.
func (c *SynthesisClient) NewSpeechGenerator(ctx context.Context, opts ...texttospeech.SynthesisOption) (texttospeech.SpeechGenerator, error) {
	gen := &speechGenerator{
		options: texttospeech.SynthesisOptions{
			AudioCallback:       func([]byte) {},
			MarkCallback:        func(string) {},
			SpeechEndedCallback: func() {},
			ErrorCallback:       func(error) {},
			EncodingInfo:        c.encodingInfo,
		},
	}

	for _, opt := range opts {
		opt(&gen.options)
	}

	var err error
	if gen.ws, err = connectWebsocket(c.voice, gen.options.EncodingInfo, c.endpoint); err != nil {
		return nil, fmt.Errorf("%w: %v", texttospeech.ErrSynthesis, err)
	}

	go gen.processIncomingMessages(ctx)

	return gen, nil
}

func connectWebsocket(voice Voice, encodingInfo audio.EncodingInfo, endpoint string) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok || apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	speakURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid speak endpoint: %w", err)
	}
	queryParams := speakURL.Query()
	queryParams.Set("encoding", encodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	queryParams.Set("model", string(voice))
	queryParams.Set("container", "none")
	speakURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(speakURL.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (g *speechGenerator) processIncomingMessages(context.Context) {
	for {
		msgType, msg, err := g.ws.ReadMessage()
		if err != nil {
			if !g.closed && !g.cancelled && err.Error() != "websocket: close 1000 (normal)" {
				g.options.ErrorCallback(fmt.Errorf("%w: %v", texttospeech.ErrSynthesis, err))
			}
			_ = g.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				g.options.AudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				continue
			}

			if parsedMsg.Type == "Flushed" {
				g.handleFlushed()
			}
		}
	}
}

// handleFlushed confirms the oldest pending segment, then moves the next one
// onto the wire. Segments queued after a flush are held back until the flush
// confirmation arrives; the provider drops text sent too soon after a flush.
func (g *speechGenerator) handleFlushed() {
	g.segmentsMu.Lock()
	defer g.segmentsMu.Unlock()

	if len(g.segments) > 0 {
		g.options.MarkCallback(g.segments[0])
		g.segments = g.segments[1:]
	}

	if len(g.segments) == 0 && g.textComplete {
		g.options.SpeechEndedCallback()
		_ = g.Close()
		return
	}

	if len(g.segments) > 0 {
		if err := g.sendWebsocketMessage(speakMsg(g.segments[0])); err != nil {
			g.options.ErrorCallback(fmt.Errorf("%w: %v", texttospeech.ErrSynthesis, err))
		}
	}
	if len(g.segments) > 1 || (len(g.segments) == 1 && g.textComplete) {
		if err := g.sendWebsocketMessage(flushMsg); err != nil {
			g.options.ErrorCallback(fmt.Errorf("%w: %v", texttospeech.ErrSynthesis, err))
		}
	}
}

func (g *speechGenerator) SendText(text string) error {
	if g.closed {
		return fmt.Errorf("speech generator closed")
	} else if g.cancelled {
		return fmt.Errorf("speech generator cancelled")
	} else if g.textComplete {
		return fmt.Errorf("speech generator text already completed")
	}

	g.segmentsMu.Lock()
	defer g.segmentsMu.Unlock()

	if len(g.segments) == 0 {
		g.segments = append(g.segments, "")
	}

	if len(g.segments) == 1 {
		if err := g.sendWebsocketMessage(speakMsg(text)); err != nil {
			return fmt.Errorf("failed to send speak message: %w", err)
		}
	}
	g.segments[len(g.segments)-1] += text
	return nil
}

func (g *speechGenerator) Mark() error {
	if g.closed {
		return fmt.Errorf("speech generator closed")
	} else if g.cancelled {
		return fmt.Errorf("speech generator cancelled")
	} else if g.textComplete {
		return fmt.Errorf("speech generator text already completed")
	}

	g.segmentsMu.Lock()
	defer g.segmentsMu.Unlock()

	if len(g.segments) == 1 {
		if err := g.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send flush message: %w", err)
		}
	}

	g.segments = append(g.segments, "")

	return nil
}

func (g *speechGenerator) EndOfText() error {
	if g.closed {
		return fmt.Errorf("speech generator closed")
	} else if g.cancelled {
		return fmt.Errorf("speech generator cancelled")
	} else if g.textComplete {
		return fmt.Errorf("speech generator text already completed")
	}

	g.segmentsMu.Lock()
	defer g.segmentsMu.Unlock()

	g.textComplete = true

	for len(g.segments) > 0 && g.segments[len(g.segments)-1] == "" {
		g.segments = g.segments[:len(g.segments)-1]
	}

	if len(g.segments) == 0 {
		g.options.SpeechEndedCallback()
		_ = g.Close()
		return nil
	}

	if len(g.segments) == 1 {
		if err := g.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send flush message: %w", err)
		}
	}

	return nil
}

func (g *speechGenerator) Cancel() error {
	if g.closed {
		return nil
	}
	if g.cancelled {
		return nil
	}

	g.cancelled = true

	g.segmentsMu.Lock()
	g.segments = nil
	g.segmentsMu.Unlock()

	if err := g.sendWebsocketMessage(clearMsg); err != nil {
		_ = g.Close()
		return fmt.Errorf("failed to send clear message: %w", err)
	}

	return g.Close()
}

func (g *speechGenerator) Close() error {
	g.wsMu.Lock()
	defer g.wsMu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	if g.ws == nil {
		return nil
	}

	if err := g.ws.WriteJSON(closeMsg); err != nil {
		if aggressiveCloseErr := g.ws.Close(); aggressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, aggressiveCloseErr))
		}
	}
	return nil
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	speakMsg = func(text string) websocketMessage {
		return websocketMessage{Type: "Speak", Text: text}
	}
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (g *speechGenerator) sendWebsocketMessage(msg websocketMessage) error {
	g.wsMu.Lock()
	defer g.wsMu.Unlock()

	if g.closed || g.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := g.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
