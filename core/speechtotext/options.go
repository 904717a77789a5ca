package speechtotext

import "github.com/tkresnik/aria-core/core/audio"

// TranscriptionOptions carries the callbacks a transcription client invokes
// while a live stream is open. All callbacks are optional; clients must treat
// a nil callback as "not interested".
type TranscriptionOptions struct {
	// InterimTranscriptionCallback delivers revisable hypotheses for the
	// utterance currently being spoken.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback delivers the confirmed, non-revisable transcript
	// of one finished utterance. At most one final is delivered per utterance.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// ErrorCallback reports a lost or failed streaming connection. After it
	// fires the client emits no further transcripts until restarted.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.InterimTranscriptionCallback = callback }
}

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.TranscriptionCallback = callback }
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.SpeechStartedCallback = callback }
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
