package texttospeech

import "github.com/tkresnik/aria-core/core/audio"

// SynthesisOptions carries the callbacks a synthesis client invokes while a
// generator is open.
type SynthesisOptions struct {
	// AudioCallback is called for every chunk of synthesized audio, in the
	// order the corresponding text was sent.
	AudioCallback func(audio []byte)
	// MarkCallback is called once per requested mark, after all speech for
	// text sent before the mark has been produced.
	MarkCallback func(mark string)
	// SpeechEndedCallback is called once all requested speech has been
	// produced, after EndOfText.
	SpeechEndedCallback func()
	// ErrorCallback reports a provider failure. The generator is unusable
	// afterwards; already-delivered audio is unaffected.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithAudioCallback(callback func(audio []byte)) SynthesisOption {
	return func(o *SynthesisOptions) { o.AudioCallback = callback }
}

func WithMarkCallback(callback func(mark string)) SynthesisOption {
	return func(o *SynthesisOptions) { o.MarkCallback = callback }
}

func WithSpeechEndedCallback(callback func()) SynthesisOption {
	return func(o *SynthesisOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(err error)) SynthesisOption {
	return func(o *SynthesisOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// SpeechGenerator is one streaming synthesis request. Text sent through it is
// rendered strictly left to right.
type SpeechGenerator interface {
	// SendText queues more text for synthesis. Errors once EndOfText, Cancel
	// or Close has been called.
	SendText(text string) error
	// Mark requests a confirmation callback once speech for all text sent so
	// far has been produced.
	Mark() error
	// EndOfText signals that no more text will be sent; the generator closes
	// itself after the remaining speech is produced. Repeated calls error.
	EndOfText() error
	// Cancel drops any queued synthesis immediately and closes the generator.
	Cancel() error
	// Close releases the generator without waiting for queued speech.
	// Repeated calls are ignored.
	Close() error
}
