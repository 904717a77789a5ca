package orchestration

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestHistoryTimestampsStrictlyIncrease(t *testing.T) {
	h := newHistory()
	for i := 0; i < 100; i++ {
		h.append(SpeakerUser, "turn", TurnFinalised)
	}

	turns := h.Snapshot()
	for i := 1; i < len(turns); i++ {
		if !turns[i].Timestamp.After(turns[i-1].Timestamp) {
			t.Fatalf("turn %d timestamp %v not after previous %v", i, turns[i].Timestamp, turns[i-1].Timestamp)
		}
	}
}

func TestHistoryUpdateContentOnlyWhilePending(t *testing.T) {
	h := newHistory()
	id := h.append(SpeakerAssistant, "", TurnPending)

	if err := h.updateContent(id, "partial reply"); err != nil {
		t.Fatalf("failed to update pending turn: %v", err)
	}
	turn, ok := h.turn(id)
	if !ok || turn.Content != "partial reply" {
		t.Fatalf("expected updated content, got %+v", turn)
	}

	h.resolve(id, TurnFinalised)
	if err := h.updateContent(id, "too late"); !errors.Is(err, ErrTurnFinalised) {
		t.Fatalf("expected ErrTurnFinalised, got %v", err)
	}
	turn, _ = h.turn(id)
	if turn.Content != "partial reply" {
		t.Fatalf("finalised turn content changed to %q", turn.Content)
	}
}

func TestHistoryUpdateContentUnknownTurn(t *testing.T) {
	h := newHistory()
	if err := h.updateContent(uuid.New(), "anything"); err == nil {
		t.Fatalf("expected an error for an unknown turn")
	}
}

func TestHistoryResolveIsOneWay(t *testing.T) {
	h := newHistory()
	id := h.append(SpeakerAssistant, "reply", TurnPending)

	h.resolve(id, TurnCancelled)
	h.resolve(id, TurnFinalised)

	turn, _ := h.turn(id)
	if turn.Status != TurnCancelled {
		t.Fatalf("expected resolution to stick, got %s", turn.Status)
	}
}

func TestHistoryTurnsIteratorIsRestartable(t *testing.T) {
	h := newHistory()
	h.append(SpeakerUser, "one", TurnFinalised)
	h.append(SpeakerAssistant, "two", TurnFinalised)
	h.append(SpeakerUser, "three", TurnFinalised)

	var first []string
	for turn := range h.Turns {
		first = append(first, turn.Content)
		if len(first) == 2 {
			break
		}
	}
	if len(first) != 2 || first[0] != "one" || first[1] != "two" {
		t.Fatalf("unexpected partial iteration: %v", first)
	}

	var second []string
	for turn := range h.Turns {
		second = append(second, turn.Content)
	}
	if len(second) != 3 || second[0] != "one" || second[2] != "three" {
		t.Fatalf("expected a fresh full iteration, got %v", second)
	}
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := newHistory()
	h.append(SpeakerUser, "original", TurnFinalised)

	snapshot := h.Snapshot()
	snapshot[0].Content = "mutated"

	if turns := h.Snapshot(); turns[0].Content != "original" {
		t.Fatalf("snapshot mutation leaked into the history")
	}
	if h.len() != 1 {
		t.Fatalf("expected 1 turn, got %d", h.len())
	}
}
