// Package deepgram renders text to speech through the Deepgram speak
// websocket API.
package deepgram

import (
	"fmt"
	"slices"

	"github.com/tkresnik/aria-core/core/audio"
)

// Voice is one of the Aura voice models offered by the speak API.
type Voice string

const (
	VoiceAsteria   Voice = "aura-2-asteria-en"
	VoiceThalia    Voice = "aura-2-thalia-en"
	VoiceOrion     Voice = "aura-2-orion-en"
	VoiceArcas     Voice = "aura-2-arcas-en"
	VoiceAndromeda Voice = "aura-2-andromeda-en"

	defaultVoice = VoiceAsteria
)

func AvailableVoices() []Voice {
	return []Voice{VoiceAsteria, VoiceThalia, VoiceOrion, VoiceArcas, VoiceAndromeda}
}

const defaultEndpoint = "wss://api.deepgram.com/v1/speak"

// SynthesisClient opens speech generators against the speak API. The client
// itself holds no connection; each generator owns its own websocket.
type SynthesisClient struct {
	voice        Voice
	encodingInfo audio.EncodingInfo
	endpoint     string
}

type ClientOption func(*SynthesisClient)

func WithVoice(voice Voice) ClientOption {
	return func(c *SynthesisClient) { c.voice = voice }
}

// WithEndpoint overrides the speak URL, mainly for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *SynthesisClient) { c.endpoint = endpoint }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *SynthesisClient) {
		if encodingInfo.IsZero() {
			return
		}
		c.encodingInfo = encodingInfo
	}
}

func NewSynthesisClient(opts ...ClientOption) (*SynthesisClient, error) {
	client := &SynthesisClient{
		voice:        defaultVoice,
		encodingInfo: audio.DefaultEncodingInfo(),
		endpoint:     defaultEndpoint,
	}

	for _, opt := range opts {
		opt(client)
	}

	if !slices.Contains(AvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice %q", client.voice)
	}

	return client, nil
}
