package orchestration

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// history is the append-only ordered log of turns, the single source of truth
// for what has been said. Insertion order is conversational order; finalised
// turns are never mutated.
type history struct {
	mu    sync.RWMutex
	turns []Turn

	lastTimestamp time.Time
}

func newHistory() *history {
	return &history{}
}

// append adds a turn at the tail and returns its ID. Timestamps are strictly
// increasing; equal clock reads are nudged forward a nanosecond.
func (h *history) append(speaker Speaker, content string, status TurnStatus) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()

	timestamp := time.Now()
	if !timestamp.After(h.lastTimestamp) {
		timestamp = h.lastTimestamp.Add(time.Nanosecond)
	}
	h.lastTimestamp = timestamp

	turn := Turn{
		ID:        uuid.New(),
		Speaker:   speaker,
		Content:   content,
		Timestamp: timestamp,
		Status:    status,
	}
	h.turns = append(h.turns, turn)
	return turn.ID
}

// updateContent replaces a pending turn's content. Writing to a turn that is
// no longer pending is a programming error and returns ErrTurnFinalised.
func (h *history) updateContent(id uuid.UUID, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].ID != id {
			continue
		}
		if h.turns[i].Status != TurnPending {
			return fmt.Errorf("%w: cannot update content of %s turn", ErrTurnFinalised, h.turns[i].Status)
		}
		h.turns[i].Content = content
		return nil
	}

	return fmt.Errorf("turn %s not found", id)
}

// resolve moves a pending turn to finalised or cancelled. Resolving an
// already-resolved turn is a no-op so cancellation stays idempotent.
func (h *history) resolve(id uuid.UUID, status TurnStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].ID != id {
			continue
		}
		if h.turns[i].Status == TurnPending {
			h.turns[i].Status = status
		}
		return
	}
}

func (h *history) turn(id uuid.UUID) (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].ID == id {
			return h.turns[i], true
		}
	}
	return Turn{}, false
}

// Turns is a restartable iterator over the log from earliest to latest. It
// ranges over a point-in-time copy, so it is safe to mutate the history while
// iterating.
func (h *history) Turns(yield func(Turn) bool) {
	for _, turn := range h.Snapshot() {
		if !yield(turn) {
			return
		}
	}
}

// Snapshot returns a point-in-time copy of the log.
func (h *history) Snapshot() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	turns := make([]Turn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

func (h *history) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
