package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type cycleStage string

const (
	stageQuerying     cycleStage = "querying"
	stageSynthesizing cycleStage = "synthesizing"
	stagePlaying      cycleStage = "playing"
	stageDone         cycleStage = "done"
	stageCancelled    cycleStage = "cancelled"
	stageFailed       cycleStage = "failed"
)

// processingCycle is the unit of work triggered by one finalized user turn.
// Its generation tags every asynchronous completion so the session loop can
// discard results from a superseded cycle. All fields except the buffers and
// player are mutated only by the session loop.
type processingCycle struct {
	generation uint64

	ctx    context.Context
	cancel context.CancelFunc

	userText  string
	startedAt time.Time
	stage     cycleStage

	userTurnID       uuid.UUID
	assistantTurnID  uuid.UUID
	hasAssistantTurn bool
	replyComplete    bool

	textBuf *textBuffer
	player  *speechPlayer

	span     trace.Span
	stopOnce sync.Once
}

func newProcessingCycle(base context.Context, generation uint64, userText string, userTurnID uuid.UUID, player *speechPlayer) *processingCycle {
	ctx, cancel := context.WithCancel(base)
	return &processingCycle{
		generation: generation,
		ctx:        ctx,
		cancel:     cancel,
		userText:   userText,
		startedAt:  time.Now(),
		stage:      stageQuerying,
		userTurnID: userTurnID,
		textBuf:    newTextBuffer(),
		player:     player,
	}
}

// stop cancels the cycle's context, halts its playback and releases any
// worker blocked on the text buffer. Idempotent.
func (c *processingCycle) stop() {
	c.stopOnce.Do(func() {
		c.cancel()
		c.player.StopAll()
		c.textBuf.Clear()
	})
}
