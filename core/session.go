package orchestration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tkresnik/aria-core/core/dialogue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const sessionEventQueueCapacity = 16

// duplicateFinalizeWindow bounds how long after a cycle starts an identical
// finalize is still treated as the provider re-sending the same utterance
// rather than the user repeating themselves.
const duplicateFinalizeWindow = 2 * time.Second

// run is the session loop: the single goroutine that owns session state.
// Every mutation of state, history status, or the active cycle happens here,
// one event at a time, in arrival order.
func (o *Orchestrator) run() {
	defer close(o.done)
	defer o.releasePendingCommands()

	for {
		select {
		case <-o.closeCh:
			return
		case event := <-o.queue:
			o.processEvent(event)
		}
	}
}

// releasePendingCommands answers commands still sitting in the queue when the
// loop exits, so no caller stays blocked on a reply that would never come.
func (o *Orchestrator) releasePendingCommands() {
	for {
		select {
		case event := <-o.queue:
			switch event := event.(type) {
			case startRecordingCmd:
				event.resp <- fmt.Errorf("orchestrator closed")
			case stopRecordingCmd:
				event.resp <- fmt.Errorf("orchestrator closed")
			case cancelPlaybackCmd:
				close(event.resp)
			}
		default:
			return
		}
	}
}

func (o *Orchestrator) enqueue(event sessionEvent) bool {
	select {
	case <-o.closeCh:
		return false
	default:
	}

	select {
	case <-o.closeCh:
		return false
	case o.queue <- event:
		return true
	}
}

func (o *Orchestrator) processEvent(event sessionEvent) {
	switch event := event.(type) {
	case startRecordingCmd:
		event.resp <- o.handleStartRecording()
	case stopRecordingCmd:
		event.resp <- o.handleStopRecording()
	case cancelPlaybackCmd:
		o.handleCancelPlayback()
		close(event.resp)
	case speechStartedEvent:
		o.handleSpeechStarted()
	case transcriptEvent:
		o.handleTranscript(event)
	case sourceErrorEvent:
		o.handleSourceError(event.err)
	case replyFragmentEvent:
		o.handleReplyFragment(event)
	case replyDoneEvent:
		o.handleReplyDone(event)
	case cycleErrorEvent:
		o.handleCycleError(event)
	case playbackDoneEvent:
		o.handlePlaybackDone(event)
	}
}

func (o *Orchestrator) handleStartRecording() error {
	if err := o.source.Start(o.baseContext, transcriptSourceCallbacks{
		onSpeechStarted:     func() { o.enqueue(speechStartedEvent{}) },
		onInterimTranscript: o.options.onInterimTranscript,
		onTranscript:        func(transcript string) { o.enqueue(transcriptEvent{text: transcript}) },
		onInputAudio:        o.options.onInputAudio,
		onError:             func(err error) { o.enqueue(sourceErrorEvent{err: err}) },
	}); err != nil {
		return err
	}

	o.recording = true
	if o.activeCycle == nil {
		o.setState(StateListening)
	}
	return nil
}

func (o *Orchestrator) handleStopRecording() error {
	o.recording = false
	err := o.source.Stop(o.baseContext)
	if o.activeCycle == nil {
		o.setState(StateIdle)
	}
	return err
}

// handleCancelPlayback is the explicit interrupt command: same cancellation
// as barge-in, then the transcript source stops and the session returns to
// Idle. Repeating it is a no-op.
func (o *Orchestrator) handleCancelPlayback() {
	o.cancelActiveCycle()
	o.recording = false
	_ = o.source.Stop(o.baseContext)
	o.setState(StateIdle)
}

func (o *Orchestrator) handleSpeechStarted() {
	if o.activeCycle == nil {
		return
	}
	o.bargeIn()
}

func (o *Orchestrator) handleTranscript(event transcriptEvent) {
	text := strings.TrimSpace(event.text)
	if text == "" {
		return
	}

	if cycle := o.activeCycle; cycle != nil {
		if !event.manual && o.isDuplicateFinalize(cycle, text) {
			cycle.span.AddEvent("coalesced duplicate finalize")
			return
		}
		o.bargeIn()
	}

	o.startCycle(text)
}

// isDuplicateFinalize recognizes the transcription provider re-finalizing the
// utterance that already started the active cycle: same text, still querying,
// within a short window. Anything else is genuine new speech.
func (o *Orchestrator) isDuplicateFinalize(cycle *processingCycle, text string) bool {
	return cycle.stage == stageQuerying &&
		strings.EqualFold(text, cycle.userText) &&
		time.Since(cycle.startedAt) < duplicateFinalizeWindow
}

func (o *Orchestrator) handleSourceError(err error) {
	o.recording = false
	o.setError(err)
	if o.activeCycle == nil {
		o.setState(StateIdle)
	}
}

// bargeIn cancels the active cycle and returns to Listening so the user's new
// speech is captured into a fresh utterance.
func (o *Orchestrator) bargeIn() {
	o.cancelActiveCycle()
	o.setState(o.restingState())
}

// retireCycle tears down a still-active cycle whose worker resolved as
// cancelled. Cancellation the session initiated clears the active cycle before
// its completion events arrive, so this only fires when a provider gave up on
// its own; the cycle must not be left stranded.
func (o *Orchestrator) retireCycle() {
	o.cancelActiveCycle()
	o.setState(o.restingState())
}

// restingState is where the session settles when no cycle is active.
func (o *Orchestrator) restingState() State {
	if o.recording {
		return StateListening
	}
	return StateIdle
}

// cancelActiveCycle stops the cycle's workers and playback and marks the
// in-flight assistant turn cancelled. Safe to call when no cycle is active.
func (o *Orchestrator) cancelActiveCycle() {
	cycle := o.activeCycle
	if cycle == nil {
		return
	}

	cycle.stop()
	cycle.stage = stageCancelled
	if cycle.hasAssistantTurn {
		o.history.resolve(cycle.assistantTurnID, TurnCancelled)
	}
	o.activeCycle = nil

	cycle.span.SetAttributes(attribute.Bool("cycle.cancelled", true))
	cycle.span.End()

	if o.options.onCancellation != nil {
		o.options.onCancellation()
	}
}

// startCycle finalizes the user turn, bumps the generation and launches the
// cycle workers. Only completions tagged with this generation will be allowed
// to touch session state when they arrive.
func (o *Orchestrator) startCycle(text string) {
	userTurnID := o.history.append(SpeakerUser, text, TurnFinalised)
	userTurn, _ := o.history.turn(userTurnID)
	o.notifyTranscriptFinalized(TranscriptNotice{Text: text, Timestamp: userTurn.Timestamp})
	if o.options.onTranscript != nil {
		o.options.onTranscript(text)
	}

	o.generation++
	cycle := newProcessingCycle(o.baseContext, o.generation, text,
		userTurnID, newSpeechPlayer(o.synthesizer, o.output))

	_, cycle.span = tracer.Start(cycle.ctx, "process cycle")
	cycle.span.SetAttributes(attribute.Int64("cycle.generation", int64(cycle.generation)))

	o.activeCycle = cycle
	o.setState(StateQuerying)

	request := dialogue.Request{
		History:  o.priorTurns(userTurnID),
		UserText: text,
	}

	generation := cycle.generation
	go func() {
		reply, err := o.agent.generate(cycle.ctx, request, func(fragment string) {
			o.enqueue(replyFragmentEvent{generation: generation, fragment: fragment})
		})
		o.enqueue(replyDoneEvent{generation: generation, reply: reply, err: err})
	}()
	go func() {
		if err := cycle.player.synthesize(cycle.ctx, cycle.textBuf, func(err error) {
			o.enqueue(cycleErrorEvent{generation: generation, err: err})
		}); err != nil {
			o.enqueue(cycleErrorEvent{generation: generation, err: err})
		}
	}()
	go func() {
		completed, err := cycle.player.play(func(chunk []byte) {
			if o.options.onAudio != nil {
				o.options.onAudio(chunk)
			}
		})
		if err != nil {
			o.enqueue(cycleErrorEvent{generation: generation, err: err})
		}
		o.enqueue(playbackDoneEvent{generation: generation, completed: completed})
	}()
}

// priorTurns builds the agent's context window: every finalised turn that
// precedes the current user turn. Cancelled and pending turns never reach the
// agent.
func (o *Orchestrator) priorTurns(before uuid.UUID) []dialogue.Turn {
	var turns []dialogue.Turn
	for turn := range o.history.Turns {
		if turn.ID == before {
			break
		}
		if turn.Status != TurnFinalised {
			continue
		}

		role := dialogue.RoleUser
		if turn.Speaker == SpeakerAssistant {
			role = dialogue.RoleAssistant
		}
		turns = append(turns, dialogue.Turn{Role: role, Content: turn.Content})
	}
	return turns
}

// currentCycle returns the active cycle only if the event's generation still
// matches; stale completions are discarded silently.
func (o *Orchestrator) currentCycle(generation uint64) *processingCycle {
	cycle := o.activeCycle
	if cycle == nil || cycle.generation != generation {
		return nil
	}
	return cycle
}

func (o *Orchestrator) handleReplyFragment(event replyFragmentEvent) {
	cycle := o.currentCycle(event.generation)
	if cycle == nil || event.fragment == "" {
		return
	}

	if !cycle.hasAssistantTurn {
		cycle.assistantTurnID = o.history.append(SpeakerAssistant, "", TurnPending)
		cycle.hasAssistantTurn = true
		cycle.stage = stageSynthesizing
		o.setState(StateSynthesizing)
	}

	cycle.textBuf.Add(event.fragment)
	if err := o.history.updateContent(cycle.assistantTurnID, cycle.textBuf.String()); err != nil {
		cycle.span.RecordError(err)
	}

	if o.options.onReply != nil {
		o.options.onReply(event.fragment)
	}
}

func (o *Orchestrator) handleReplyDone(event replyDoneEvent) {
	cycle := o.currentCycle(event.generation)
	if cycle == nil {
		return
	}

	if o.options.onReplyEnd != nil {
		o.options.onReplyEnd()
	}

	if event.err != nil {
		if errors.Is(event.err, ErrCancelled) {
			o.retireCycle()
			return
		}
		o.failCycle(cycle, event.err)
		return
	}

	cycle.replyComplete = true
	cycle.textBuf.Complete()

	if !cycle.hasAssistantTurn {
		// Empty reply: nothing to say, nothing to play.
		o.completeCycle(cycle, stageDone)
		return
	}

	if err := o.history.updateContent(cycle.assistantTurnID, event.reply); err != nil {
		cycle.span.RecordError(err)
	}
	cycle.stage = stagePlaying
	o.setState(StateSpeaking)
}

func (o *Orchestrator) handleCycleError(event cycleErrorEvent) {
	cycle := o.currentCycle(event.generation)
	if cycle == nil {
		return
	}
	if errors.Is(event.err, ErrCancelled) {
		o.retireCycle()
		return
	}

	o.failCycle(cycle, event.err)
}

func (o *Orchestrator) handlePlaybackDone(event playbackDoneEvent) {
	cycle := o.currentCycle(event.generation)
	if cycle == nil || !event.completed {
		return
	}
	// Playback only legitimately completes after the reply finished; an early
	// completion means the audio path collapsed and the cycle's error event
	// decides its fate.
	if cycle.stage != stagePlaying {
		return
	}

	if cycle.hasAssistantTurn {
		o.history.resolve(cycle.assistantTurnID, TurnFinalised)
	}
	o.completeCycle(cycle, stageDone)

	if o.options.onPlaybackEnded != nil {
		o.options.onPlaybackEnded()
	}
}

// failCycle surfaces a provider failure on the session error slot and tears
// the cycle down. If the reply text was already complete when synthesis or
// playback failed, the assistant turn keeps its text and is finalised; a turn
// whose text never finished is cancelled.
func (o *Orchestrator) failCycle(cycle *processingCycle, err error) {
	cycle.stop()
	if cycle.hasAssistantTurn {
		status := TurnCancelled
		if cycle.replyComplete {
			status = TurnFinalised
		}
		o.history.resolve(cycle.assistantTurnID, status)
	}

	o.setError(err)
	cycle.span.RecordError(err)
	cycle.span.SetStatus(codes.Error, err.Error())

	o.completeCycle(cycle, stageFailed)
}

func (o *Orchestrator) completeCycle(cycle *processingCycle, stage cycleStage) {
	cycle.stage = stage
	o.activeCycle = nil
	cycle.span.End()

	o.setState(o.restingState())
}
