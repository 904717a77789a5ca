package orchestration

import (
	"context"

	"github.com/tkresnik/aria-core/core/audio"
	"github.com/tkresnik/aria-core/core/dialogue"
	"github.com/tkresnik/aria-core/core/speechtotext"
	"github.com/tkresnik/aria-core/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

// Transcriber is a streaming transcription client.
type Transcriber interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(frame []byte) error
}

func WithTranscriber(client Transcriber) OrchestratorOption {
	return func(o *Orchestrator) { o.source.setTranscriber(client) }
}

// AudioInput is a capture device with explicit start/stop controls.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	StartCapture(ctx context.Context, onAudio func(frame []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.source.setDevice(client) }
}

// AudioOutput is a playback device that accepts raw audio and reports marks
// once the audio queued before them has been played out.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(frame []byte) error
	ClearBuffer()
	Mark(mark string, callback func(string)) error
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.output = client }
}

// Synthesizer opens one speech generator per processing cycle.
type Synthesizer interface {
	NewSpeechGenerator(ctx context.Context, opts ...texttospeech.SynthesisOption) (texttospeech.SpeechGenerator, error)
}

func WithSynthesizer(client Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = client }
}

func WithStreamingAgent(client dialogue.StreamingClient) OrchestratorOption {
	return func(o *Orchestrator) { o.agent.set(client) }
}

func WithAgent(client dialogue.Client) OrchestratorOption {
	return func(o *Orchestrator) { o.agent.set(client) }
}

// OrchestrateOptions carries the host callbacks for one Orchestrate run.
type OrchestrateOptions struct {
	onInterimTranscript func(transcript string)
	onTranscript        func(transcript string)
	onReply             func(fragment string)
	onReplyEnd          func()
	onAudio             func(audio []byte)
	onPlaybackEnded     func()
	onCancellation      func()
	onInputAudio        func(audio []byte)
	onStateChanged      func(state State)
	onError             func(err error)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithInterimTranscriptCallback registers a callback for interim (partial)
// transcripts, for live UI display. Interim text is never written to history.
func WithInterimTranscriptCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onInterimTranscript = callback }
}

// WithTranscriptCallback registers a callback for final transcripts accepted
// by the orchestrator. Coalesced duplicates do not trigger it.
func WithTranscriptCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTranscript = callback }
}

func WithReplyCallback(callback func(fragment string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onReply = callback }
}

func WithReplyEndCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onReplyEnd = callback }
}

func WithAudioCallback(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onAudio = callback }
}

func WithPlaybackEndedCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onPlaybackEnded = callback }
}

func WithCancellationCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onCancellation = callback }
}

// WithInputAudioCallback registers a callback for raw captured audio chunks.
// The slice is passed through as-is; the callback runs on the capture path and
// should not block.
func WithInputAudioCallback(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onInputAudio = callback }
}

func WithStateChangedCallback(callback func(state State)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onStateChanged = callback }
}

// WithErrorCallback registers a callback for session-level errors. Cancelled
// work never triggers it.
func WithErrorCallback(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onError = callback }
}
