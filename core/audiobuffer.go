package orchestration

import (
	"sync"
)

// audioBuffer carries synthesized audio chunks from the speech generator to
// the playback worker, preserving arrival order. One buffer belongs to one
// processing cycle.
type audioBuffer struct {
	mu sync.Mutex

	chunks    [][]byte
	consumed  int
	allLoaded bool
	stopped   bool

	updateSignal chan struct{}
}

func newAudioBuffer() *audioBuffer {
	return &audioBuffer{
		updateSignal: make(chan struct{}, 1),
	}
}

func (b *audioBuffer) Add(chunk []byte) {
	b.mu.Lock()
	b.chunks = append(b.chunks, chunk)
	b.mu.Unlock()
	b.signalUpdate()
}

// AllLoaded marks that synthesis has produced its last chunk.
func (b *audioBuffer) AllLoaded() {
	b.mu.Lock()
	b.allLoaded = true
	b.mu.Unlock()
	b.signalUpdate()
}

// Audio is a consume-once lazy sequence of chunks. It blocks while more audio
// may still arrive and ends once the buffer is drained after AllLoaded, or
// immediately after Stop.
func (b *audioBuffer) Audio(yield func([]byte) bool) {
	for {
		b.mu.Lock()
		if b.stopped {
			b.mu.Unlock()
			return
		}

		if b.consumed < len(b.chunks) {
			chunk := b.chunks[b.consumed]
			b.consumed++
			b.mu.Unlock()
			if !yield(chunk) {
				return
			}
			continue
		}

		if b.allLoaded {
			b.mu.Unlock()
			return
		}

		b.mu.Unlock()
		<-b.updateSignal
	}
}

// Stop halts the sequence immediately, dropping anything not yet consumed.
// Safe to call repeatedly.
func (b *audioBuffer) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()
	b.signalUpdate()
}

func (b *audioBuffer) played() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed > 0
}

func (b *audioBuffer) signalUpdate() {
	select {
	case b.updateSignal <- struct{}{}:
	default:
	}
}
