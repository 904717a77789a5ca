package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tkresnik/aria-core/core/texttospeech"
)

// speechPlayer renders one cycle's reply text to audible playback. It owns the
// cycle's speech generator and audio buffer; the output device is shared
// session state injected by the orchestrator.
type speechPlayer struct {
	synthesizer Synthesizer
	output      AudioOutput

	audioBuf *audioBuffer

	mu        sync.Mutex
	generator texttospeech.SpeechGenerator
	stopped   bool
	stopCh    chan struct{}
}

func newSpeechPlayer(synthesizer Synthesizer, output AudioOutput) *speechPlayer {
	return &speechPlayer{
		synthesizer: synthesizer,
		output:      output,
		audioBuf:    newAudioBuffer(),
		stopCh:      make(chan struct{}),
	}
}

// synthesize streams reply fragments into a fresh speech generator and
// forwards the produced audio into the player's buffer. It returns once all
// text has been handed over, not once audio is done. Without a synthesizer
// the text is drained and the buffer closes empty, so playback completes
// immediately.
func (p *speechPlayer) synthesize(ctx context.Context, text *textBuffer, onError func(error)) error {
	if p.synthesizer == nil {
		for range text.Fragments {
		}
		p.audioBuf.AllLoaded()
		return nil
	}

	generator, err := p.synthesizer.NewSpeechGenerator(ctx,
		texttospeech.WithAudioCallback(p.audioBuf.Add),
		texttospeech.WithSpeechEndedCallback(p.audioBuf.AllLoaded),
		texttospeech.WithErrorCallback(func(err error) {
			p.audioBuf.AllLoaded()
			if onError != nil {
				onError(err)
			}
		}),
	)
	if err != nil {
		p.audioBuf.AllLoaded()
		return fmt.Errorf("failed to open speech generator: %w", err)
	}

	if !p.adoptGenerator(generator) {
		return nil
	}

	for fragment := range text.Fragments {
		if p.isStopped() {
			return nil
		}
		if err := generator.SendText(fragment); err != nil {
			if p.isStopped() {
				return nil
			}
			p.audioBuf.AllLoaded()
			return fmt.Errorf("failed to send text to speech generator: %w", err)
		}
	}

	if p.isStopped() {
		return nil
	}
	if err := generator.EndOfText(); err != nil {
		p.audioBuf.AllLoaded()
		return fmt.Errorf("failed to finish speech generation: %w", err)
	}
	return nil
}

// play forwards buffered audio to the output device in order, then waits for
// the device to drain. onPlayed is invoked for every chunk handed to the
// device. It returns false if playback was stopped before completing, and a
// non-nil error if the device refused audio mid-turn.
func (p *speechPlayer) play(onPlayed func([]byte)) (bool, error) {
	for chunk := range p.audioBuf.Audio {
		if p.output != nil {
			if err := p.output.SendAudio(chunk); err != nil {
				// A device that refuses audio mid-turn drops the rest of the
				// cycle's audio.
				p.StopAll()
				return false, fmt.Errorf("%w: %v", ErrDevice, err)
			}
		}
		if onPlayed != nil {
			onPlayed(chunk)
		}
	}

	if p.isStopped() {
		return false, nil
	}

	if p.output != nil && p.audioBuf.played() {
		drained := make(chan struct{})
		if err := p.output.Mark(uuid.NewString(), func(string) { close(drained) }); err == nil {
			// The device drops its marks when the queue is cleared, so a stop
			// must release this wait too.
			select {
			case <-drained:
			case <-p.stopCh:
				return false, nil
			}
		}
	}

	return !p.isStopped(), nil
}

// StopAll immediately halts playing and queued audio: the buffer stops
// yielding, the device queue is cleared, and the generator is cancelled.
// Safe to call at any time, repeatedly, including when nothing is playing.
func (p *speechPlayer) StopAll() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	generator := p.generator
	close(p.stopCh)
	p.mu.Unlock()

	p.audioBuf.Stop()
	if p.output != nil {
		p.output.ClearBuffer()
	}
	if generator != nil {
		_ = generator.Cancel()
	}
}

// adoptGenerator records the cycle's generator so StopAll can cancel it. If
// the player was stopped while the generator was being opened, the generator
// is cancelled on the spot.
func (p *speechPlayer) adoptGenerator(generator texttospeech.SpeechGenerator) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		_ = generator.Cancel()
		return false
	}
	p.generator = generator
	p.mu.Unlock()
	return true
}

func (p *speechPlayer) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
