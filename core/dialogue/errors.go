package dialogue

import "errors"

var (
	// ErrAuth marks a missing or rejected provider credential.
	ErrAuth = errors.New("dialogue agent authentication failed")
	// ErrUpstream marks a provider-side failure, including timeouts.
	ErrUpstream = errors.New("dialogue agent upstream failure")
)
