package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tkresnik/aria-core/core/dialogue"
)

// agent normalizes streaming and complete-reply dialogue clients behind one
// facade. The orchestrator only ever sees fragments; a complete reply is
// delivered as a single fragment.
type agent struct {
	client any
}

func (a *agent) set(client any) {
	if a != nil {
		a.client = client
	}
}

func (a *agent) isConfigured() bool {
	return a != nil && a.client != nil
}

// generate produces the assistant reply for one user turn, invoking onFragment
// for each piece of text as it arrives. Context cancellation between fragments
// resolves as ErrCancelled and stops fragment delivery; no retries happen
// here.
func (a *agent) generate(ctx context.Context, req dialogue.Request, onFragment func(string)) (string, error) {
	if !a.isConfigured() {
		return "", nil
	}

	switch client := a.client.(type) {
	case dialogue.StreamingClient:
		return a.generateStreaming(ctx, client, req, onFragment)
	case dialogue.Client:
		return a.generateComplete(ctx, client, req, onFragment)
	default:
		return "", fmt.Errorf("unknown dialogue client type %T", a.client)
	}
}

func (a *agent) generateStreaming(ctx context.Context, client dialogue.StreamingClient, req dialogue.Request, onFragment func(string)) (string, error) {
	var reply strings.Builder

	stream := client.StreamReply(ctx, req)
	for fragment, err := range stream.Fragments(ctx) {
		if err != nil {
			return "", resolveAgentErr(ctx, err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
		}

		reply.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
	}

	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
	}
	return reply.String(), nil
}

func (a *agent) generateComplete(ctx context.Context, client dialogue.Client, req dialogue.Request, onFragment func(string)) (string, error) {
	reply, err := client.Reply(ctx, req)
	if err != nil {
		return "", resolveAgentErr(ctx, err)
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
	}

	if onFragment != nil {
		onFragment(reply)
	}
	return reply, nil
}

// resolveAgentErr folds context cancellation into ErrCancelled so barge-in
// does not surface as a provider failure.
func resolveAgentErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}
