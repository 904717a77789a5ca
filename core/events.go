package orchestration

// Internal session events. Everything the session reacts to, whether a host
// command or an asynchronous provider completion, flows through the one event
// queue and is processed in arrival order by the session loop.

type sessionEvent interface{ isSessionEvent() }

type startRecordingCmd struct {
	resp chan error
}

type stopRecordingCmd struct {
	resp chan error
}

type cancelPlaybackCmd struct {
	resp chan struct{}
}

// speechStartedEvent reports voice activity from the transcript source. While
// a cycle is active this is the barge-in signal.
type speechStartedEvent struct{}

// transcriptEvent carries one finalized transcript. Manual events come from
// SendText and bypass duplicate coalescing.
type transcriptEvent struct {
	text   string
	manual bool
}

type sourceErrorEvent struct {
	err error
}

type replyFragmentEvent struct {
	generation uint64
	fragment   string
}

type replyDoneEvent struct {
	generation uint64
	reply      string
	err        error
}

type cycleErrorEvent struct {
	generation uint64
	err        error
}

type playbackDoneEvent struct {
	generation uint64
	completed  bool
}

func (startRecordingCmd) isSessionEvent()  {}
func (stopRecordingCmd) isSessionEvent()   {}
func (cancelPlaybackCmd) isSessionEvent()  {}
func (speechStartedEvent) isSessionEvent() {}
func (transcriptEvent) isSessionEvent()    {}
func (sourceErrorEvent) isSessionEvent()   {}
func (replyFragmentEvent) isSessionEvent() {}
func (replyDoneEvent) isSessionEvent()     {}
func (cycleErrorEvent) isSessionEvent()    {}
func (playbackDoneEvent) isSessionEvent()  {}
