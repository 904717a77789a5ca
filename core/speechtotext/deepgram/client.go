// Package deepgram streams microphone audio to the Deepgram live-listen
// websocket API and maps its responses onto the speechtotext callbacks.
package deepgram

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tkresnik/aria-core/core/audio"
)

// TranscriptionClient is one live transcription connection. A client is
// restartable: after the stream is closed or lost, Transcribe may be called
// again to open a fresh connection.
type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastAudioSent time.Time

	// accumulated collects is_final segments until the provider confirms the
	// end of the utterance, so one final transcript is emitted per utterance.
	accumulated    string
	unendedSegment bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}

type encodingParams struct {
	sampleRate int
	encoding   string
}

func convertEncoding(encoding audio.EncodingInfo) (*encodingParams, error) {
	params := encodingParams{encoding: encoding.Format.Name()}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		params.sampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.FormatLinear16:
	case audio.FormatALaw, audio.FormatMulaw:
		if params.sampleRate != 8000 {
			return nil, fmt.Errorf("unsupported sample rate %d for %s encoding", params.sampleRate, encoding.Format.Name())
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return &params, nil
}
