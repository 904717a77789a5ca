package deepgram

import (
	"testing"

	"github.com/tkresnik/aria-core/core/audio"
)

func TestNewSynthesisClientDefaults(t *testing.T) {
	client, err := NewSynthesisClient()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if client.voice != defaultVoice {
		t.Fatalf("expected default voice %q, got %q", defaultVoice, client.voice)
	}
	if client.encodingInfo != audio.DefaultEncodingInfo() {
		t.Fatalf("expected default encoding, got %+v", client.encodingInfo)
	}
}

func TestNewSynthesisClientAcceptsKnownVoices(t *testing.T) {
	for _, voice := range AvailableVoices() {
		client, err := NewSynthesisClient(WithVoice(voice))
		if err != nil {
			t.Fatalf("expected voice %q to be accepted: %v", voice, err)
		}
		if client.voice != voice {
			t.Fatalf("expected voice %q, got %q", voice, client.voice)
		}
	}
}

func TestNewSynthesisClientRejectsUnknownVoice(t *testing.T) {
	if _, err := NewSynthesisClient(WithVoice("aura-2-nonexistent-en")); err == nil {
		t.Fatalf("expected an unknown voice to be rejected")
	}
}

func TestWithEncodingInfoIgnoresZeroValue(t *testing.T) {
	client, err := NewSynthesisClient(WithEncodingInfo(audio.EncodingInfo{}))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if client.encodingInfo != audio.DefaultEncodingInfo() {
		t.Fatalf("expected the zero encoding to be ignored, got %+v", client.encodingInfo)
	}
}
