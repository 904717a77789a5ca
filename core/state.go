package orchestration

// State is the orchestrator's observable position in the turn lifecycle.
type State string

const (
	// StateIdle means no capture and no active cycle.
	StateIdle State = "idle"
	// StateListening means the transcript source is capturing and no cycle is
	// active.
	StateListening State = "listening"
	// StateQuerying means a cycle is awaiting the dialogue agent's reply.
	StateQuerying State = "querying"
	// StateSynthesizing means reply fragments are streaming into synthesis.
	StateSynthesizing State = "synthesizing"
	// StateSpeaking means the reply is complete and audio is playing out.
	StateSpeaking State = "speaking"
)
