package orchestration

import (
	"time"

	"github.com/google/uuid"
)

// Speaker identifies which side of the conversation produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// TurnStatus tracks a turn through its one-way lifecycle. A pending turn
// becomes finalised or cancelled, never both, and never reverts.
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"
	TurnFinalised TurnStatus = "finalised"
	TurnCancelled TurnStatus = "cancelled"
)

// Turn is one utterance by one speaker.
type Turn struct {
	ID        uuid.UUID
	Speaker   Speaker
	Content   string
	Timestamp time.Time
	Status    TurnStatus
}
