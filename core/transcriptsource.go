package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tkresnik/aria-core/core/audio"
	"github.com/tkresnik/aria-core/core/speechtotext"
)

// transcriptSourceCallbacks are the events the source feeds into the session
// loop.
type transcriptSourceCallbacks struct {
	onSpeechStarted     func()
	onSpeechEnded       func()
	onInterimTranscript func(transcript string)
	onTranscript        func(transcript string)
	onInputAudio        func(frame []byte)
	onError             func(err error)
}

// transcriptSource owns the capture device and the transcription client for
// one session. Both are optional; an unconfigured source starts and stops as
// a no-op so text-only sessions keep working.
type transcriptSource struct {
	device      AudioInput
	transcriber Transcriber

	capturing atomic.Bool
}

func newTranscriptSource() *transcriptSource {
	return &transcriptSource{}
}

func (s *transcriptSource) setDevice(device AudioInput) {
	if s != nil {
		s.device = device
	}
}

func (s *transcriptSource) setTranscriber(client Transcriber) {
	if s != nil {
		s.transcriber = client
	}
}

func (s *transcriptSource) isConfigured() bool {
	return s != nil && s.transcriber != nil
}

// Start opens the transcription stream and then the capture device. A stream
// that cannot be opened surfaces ErrConnection; a device that cannot start
// surfaces ErrDevice.
func (s *transcriptSource) Start(ctx context.Context, callbacks transcriptSourceCallbacks) error {
	if !s.isConfigured() {
		return nil
	}

	if !s.capturing.CompareAndSwap(false, true) {
		return nil
	}

	opts := []speechtotext.TranscriptionOption{
		speechtotext.WithEncodingInfo(s.EncodingInfo()),
		speechtotext.WithTranscriptionCallback(callbacks.onTranscript),
		speechtotext.WithErrorCallback(func(err error) {
			s.capturing.Store(false)
			s.stopDevice()
			if callbacks.onError != nil {
				callbacks.onError(err)
			}
		}),
	}
	if callbacks.onSpeechStarted != nil {
		opts = append(opts, speechtotext.WithSpeechStartedCallback(callbacks.onSpeechStarted))
	}
	if callbacks.onSpeechEnded != nil {
		opts = append(opts, speechtotext.WithSpeechEndedCallback(callbacks.onSpeechEnded))
	}
	if callbacks.onInterimTranscript != nil {
		opts = append(opts, speechtotext.WithInterimTranscriptionCallback(callbacks.onInterimTranscript))
	}

	if err := s.transcriber.Transcribe(ctx, opts...); err != nil {
		s.capturing.Store(false)
		return fmt.Errorf("failed to start transcribing: %w", err)
	}

	if s.device != nil {
		if err := s.device.StartCapture(ctx, func(frame []byte) {
			if callbacks.onInputAudio != nil {
				callbacks.onInputAudio(frame)
			}
			if err := s.transcriber.SendAudio(frame); err != nil {
				// Dropped frames while the stream tears down are expected; the
				// read loop reports the loss through the error callback.
				_ = err
			}
		}); err != nil {
			s.capturing.Store(false)
			s.closeTranscriber(ctx)
			return fmt.Errorf("%w: %v", ErrDevice, err)
		}
	}

	return nil
}

// Stop releases the device and closes the stream. Stopping an already-stopped
// source is a no-op.
func (s *transcriptSource) Stop(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	if !s.capturing.CompareAndSwap(true, false) {
		return nil
	}

	s.stopDevice()
	s.closeTranscriber(ctx)
	return nil
}

// SendAudio forwards an externally produced frame to the transcriber,
// bypassing the capture device.
func (s *transcriptSource) SendAudio(frame []byte) error {
	if !s.isConfigured() {
		return nil
	}
	return s.transcriber.SendAudio(frame)
}

func (s *transcriptSource) isCapturing() bool {
	return s != nil && s.capturing.Load()
}

func (s *transcriptSource) EncodingInfo() audio.EncodingInfo {
	if s == nil || s.device == nil {
		return audio.DefaultEncodingInfo()
	}
	return s.device.EncodingInfo()
}

func (s *transcriptSource) stopDevice() {
	if s.device != nil {
		_ = s.device.StopCapture()
	}
}

func (s *transcriptSource) closeTranscriber(ctx context.Context) {
	switch c := s.transcriber.(type) {
	case interface{ Close(context.Context) error }:
		_ = c.Close(ctx)
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		_ = c.Close()
	case interface{ Close() }:
		c.Close()
	}
}
