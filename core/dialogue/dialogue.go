// Package dialogue defines the contract between the turn orchestrator and a
// language-model dialogue agent. A client receives the prior conversation plus
// the newly finalized user text and produces the assistant's reply, either as
// one complete string or as an incrementally streamed sequence of fragments.
package dialogue

import "context"

// Role identifies the speaker of one conversation turn as the agent sees it.
type Role = string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior utterance passed to the agent as context.
type Turn struct {
	Role    Role
	Content string
}

// Request is one reply-generation call.
type Request struct {
	// History holds the finalized turns so far, oldest first. Cancelled turns
	// are excluded by the caller.
	History []Turn
	// UserText is the newly finalized user utterance the reply answers.
	UserText string
}

// Client produces a complete reply in one call.
//
// The context is the cycle's cancellation scope: a client must return
// ctx.Err() promptly once it is cancelled and must not invoke anything after
// returning.
type Client interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// StreamingClient produces a reply as a lazy fragment sequence. The sequence
// is consumed at most once and is abandoned (not restarted) on cancellation.
type StreamingClient interface {
	StreamReply(ctx context.Context, req Request) Stream
}

// Stream is a lazy sequence of reply fragments. Iteration stops early when the
// yield returns false or the context is cancelled; a non-nil error ends the
// sequence.
type Stream interface {
	Fragments(ctx context.Context) func(yield func(string, error) bool)
}
