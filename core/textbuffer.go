package orchestration

import (
	"strings"
	"sync"
)

// textBuffer carries reply fragments from the dialogue agent to speech
// synthesis. Fragments come out strictly in the order they were added.
type textBuffer struct {
	mu        sync.Mutex
	fragments []string
	consumed  int
	complete  bool
	cleared   bool

	updateSignal chan struct{}
}

func newTextBuffer() *textBuffer {
	return &textBuffer{
		updateSignal: make(chan struct{}, 1),
	}
}

func (b *textBuffer) Add(fragment string) {
	b.mu.Lock()
	b.fragments = append(b.fragments, fragment)
	b.mu.Unlock()
	b.signalUpdate()
}

// Complete marks that no more fragments will be added.
func (b *textBuffer) Complete() {
	b.mu.Lock()
	b.complete = true
	b.mu.Unlock()
	b.signalUpdate()
}

// Fragments is a consume-once lazy sequence. It blocks between fragments and
// ends once the buffer is complete and drained, or cleared.
func (b *textBuffer) Fragments(yield func(string) bool) {
	for {
		b.mu.Lock()
		if b.cleared {
			b.mu.Unlock()
			return
		}

		if b.consumed < len(b.fragments) {
			fragment := b.fragments[b.consumed]
			b.consumed++
			b.mu.Unlock()
			if !yield(fragment) {
				return
			}
			continue
		}

		if b.complete {
			b.mu.Unlock()
			return
		}

		b.mu.Unlock()
		<-b.updateSignal
	}
}

func (b *textBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return strings.Join(b.fragments, "")
}

// Clear drops the buffer and releases any blocked consumer.
func (b *textBuffer) Clear() {
	b.mu.Lock()
	b.cleared = true
	b.mu.Unlock()
	b.signalUpdate()
}

func (b *textBuffer) signalUpdate() {
	select {
	case b.updateSignal <- struct{}{}:
	default:
	}
}
