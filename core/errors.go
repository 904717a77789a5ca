package orchestration

import (
	"errors"

	"github.com/tkresnik/aria-core/core/dialogue"
	"github.com/tkresnik/aria-core/core/speechtotext"
	"github.com/tkresnik/aria-core/core/texttospeech"
)

// The session-level error taxonomy. Provider adapters wrap their failures in
// the sentinels owned by their contract packages; the orchestrator re-exports
// them here so hosts can match with errors.Is against one package.
var (
	// ErrDevice marks a capture device that could not be acquired or started.
	ErrDevice = errors.New("audio device failed")
	// ErrConnection marks a transcription stream that could not be established
	// or was lost.
	ErrConnection = speechtotext.ErrConnection
	// ErrAuth marks a missing or rejected provider credential.
	ErrAuth = dialogue.ErrAuth
	// ErrUpstream marks a dialogue provider failure or timeout.
	ErrUpstream = dialogue.ErrUpstream
	// ErrSynthesis marks a speech synthesis provider failure.
	ErrSynthesis = texttospeech.ErrSynthesis

	// ErrCancelled resolves work interrupted by barge-in or explicit
	// cancellation. It never reaches the session error surface.
	ErrCancelled = errors.New("cancelled")

	// ErrTurnFinalised is returned when content is written to a turn whose
	// status is no longer pending.
	ErrTurnFinalised = errors.New("turn already finalised")
)
