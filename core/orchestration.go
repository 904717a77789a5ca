// Package orchestration coordinates live audio capture, streaming
// transcription, dialogue-agent replies and speech playback into a single
// conversational session with barge-in support.
package orchestration

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Orchestrator drives one conversation session. Configure clients through
// options, call Orchestrate once to start the session loop, then control it
// with the command methods. All session state is owned by the loop goroutine;
// commands are serialized through its event queue.
type Orchestrator struct {
	history *history
	// source is the transcript source facade handling optional client wiring.
	source *transcriptSource
	// agent is the dialogue facade normalizing streaming and complete clients.
	agent       agent
	synthesizer Synthesizer
	output      AudioOutput

	queue   chan sessionEvent
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	baseContext context.Context
	options     OrchestrateOptions

	// Loop-owned session state. Only the session loop goroutine touches these.
	activeCycle *processingCycle
	generation  uint64
	recording   bool

	stateMu sync.RWMutex
	state   State

	errMu      sync.Mutex
	sessionErr error

	subscribersMu  sync.Mutex
	subscribers    map[int]func(TranscriptNotice)
	nextSubscriber int
}

// TranscriptNotice is delivered to OnTranscriptFinalized subscribers once per
// accepted user utterance.
type TranscriptNotice struct {
	Text      string
	Timestamp time.Time
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		history:     newHistory(),
		source:      newTranscriptSource(),
		queue:       make(chan sessionEvent, sessionEventQueueCapacity),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
		baseContext: context.Background(),
		state:       StateIdle,
		subscribers: map[int]func(TranscriptNotice){},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Orchestrate starts the session loop. ctx is the base context for agent and
// synthesis calls; when it is cancelled the session closes.
//
// Call Orchestrate at most once per orchestrator instance.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.isClosed() {
		log.Println("Warning: orchestrator already closed, skipping Orchestrate")
		return
	}

	o.startOnce.Do(func() {
		o.options = OrchestrateOptions{}
		for _, opt := range opts {
			opt(&o.options)
		}
		o.baseContext = ctx
		o.started.Store(true)

		go o.run()
		go func() {
			<-ctx.Done()
			o.Close()
		}()
	})
}

// Close ends the session: the loop exits, the active cycle is cancelled and
// the transcript source is released. Safe to call repeatedly.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.closeCh)
		if o.started.Load() {
			<-o.done
		}

		// The loop has exited; session state is safe to touch here.
		if cycle := o.activeCycle; cycle != nil {
			cycle.stop()
			if cycle.hasAssistantTurn {
				o.history.resolve(cycle.assistantTurnID, TurnCancelled)
			}
			cycle.span.End()
			o.activeCycle = nil
		}
		_ = o.source.Stop(o.baseContext)
		o.setState(StateIdle)
	})
}

// StartRecording acquires the capture device and opens the transcription
// stream. Fails with ErrDevice if the device cannot start and ErrConnection
// if the stream cannot be established. Orchestrate must be running.
func (o *Orchestrator) StartRecording() error {
	resp := make(chan error, 1)
	if !o.started.Load() || !o.enqueue(startRecordingCmd{resp: resp}) {
		return fmt.Errorf("orchestrator not running")
	}
	select {
	case err := <-resp:
		return err
	case <-o.done:
		return fmt.Errorf("orchestrator not running")
	}
}

// StopRecording releases the device and closes the stream. Idempotent.
func (o *Orchestrator) StopRecording() error {
	resp := make(chan error, 1)
	if !o.started.Load() || !o.enqueue(stopRecordingCmd{resp: resp}) {
		return fmt.Errorf("orchestrator not running")
	}
	select {
	case err := <-resp:
		return err
	case <-o.done:
		return fmt.Errorf("orchestrator not running")
	}
}

// CancelAllPlayback is the explicit interrupt: it cancels the in-flight cycle,
// halts all audio and stops recording. Safe to call at any time, repeatedly.
func (o *Orchestrator) CancelAllPlayback() {
	if !o.started.Load() {
		return
	}
	resp := make(chan struct{})
	if !o.enqueue(cancelPlaybackCmd{resp: resp}) {
		return
	}
	select {
	case <-resp:
	case <-o.done:
	}
}

// SendText injects a user utterance without the microphone. It runs the same
// processing cycle a spoken utterance would, including barge-in against an
// active cycle.
func (o *Orchestrator) SendText(text string) {
	if !o.started.Load() {
		log.Println("Warning: orchestrator not running, dropping text prompt")
		return
	}
	o.enqueue(transcriptEvent{text: text, manual: true})
}

// SendAudio forwards an externally captured frame to the transcriber.
func (o *Orchestrator) SendAudio(frame []byte) error {
	return o.source.SendAudio(frame)
}

// OnTranscriptFinalized subscribes to accepted final transcripts and returns
// an unsubscribe function.
func (o *Orchestrator) OnTranscriptFinalized(callback func(TranscriptNotice)) (unsubscribe func()) {
	o.subscribersMu.Lock()
	id := o.nextSubscriber
	o.nextSubscriber++
	o.subscribers[id] = callback
	o.subscribersMu.Unlock()

	return func() {
		o.subscribersMu.Lock()
		delete(o.subscribers, id)
		o.subscribersMu.Unlock()
	}
}

func (o *Orchestrator) notifyTranscriptFinalized(notice TranscriptNotice) {
	o.subscribersMu.Lock()
	callbacks := make([]func(TranscriptNotice), 0, len(o.subscribers))
	for _, callback := range o.subscribers {
		callbacks = append(callbacks, callback)
	}
	o.subscribersMu.Unlock()

	for _, callback := range callbacks {
		callback(notice)
	}
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(state State) {
	o.stateMu.Lock()
	changed := o.state != state
	o.state = state
	o.stateMu.Unlock()

	if changed && o.options.onStateChanged != nil {
		o.options.onStateChanged(state)
	}
}

// History returns a point-in-time copy of the session's turns.
func (o *Orchestrator) History() []Turn {
	return o.history.Snapshot()
}

// Turns is a restartable iterator over the session's turns.
func (o *Orchestrator) Turns(yield func(Turn) bool) {
	o.history.Turns(yield)
}

// Err returns the session's user-visible error, if any. Cancelled work never
// sets it.
func (o *Orchestrator) Err() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.sessionErr
}

// ClearError clears the user-visible error slot.
func (o *Orchestrator) ClearError() {
	o.errMu.Lock()
	o.sessionErr = nil
	o.errMu.Unlock()
}

func (o *Orchestrator) setError(err error) {
	if err == nil {
		return
	}

	o.errMu.Lock()
	o.sessionErr = err
	o.errMu.Unlock()

	if o.options.onError != nil {
		o.options.onError(err)
	}
}

func (o *Orchestrator) isClosed() bool {
	select {
	case <-o.closeCh:
		return true
	default:
		return false
	}
}
