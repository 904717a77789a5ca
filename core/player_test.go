package orchestration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPlayerSynthesizesAndPlaysInOrder(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	output := &stubAudioOutput{autoConfirm: true}
	player := newSpeechPlayer(synthesizer, output)

	text := newTextBuffer()
	fragments := []string{"Hello, ", "world!"}
	for _, fragment := range fragments {
		text.Add(fragment)
	}
	text.Complete()

	if err := player.synthesize(context.Background(), text, nil); err != nil {
		t.Fatalf("failed to synthesize: %v", err)
	}

	var played [][]byte
	completed, err := player.play(func(chunk []byte) {
		played = append(played, chunk)
	})
	if err != nil {
		t.Fatalf("unexpected playback error: %v", err)
	}
	if !completed {
		t.Fatalf("expected playback to complete")
	}

	if len(played) != len(fragments) {
		t.Fatalf("expected %d chunks, got %d", len(fragments), len(played))
	}
	for i, fragment := range fragments {
		if !bytes.Equal(played[i], []byte(fragment)) {
			t.Fatalf("chunk %d: expected %q, got %q", i, fragment, played[i])
		}
	}

	sent := output.sent()
	if len(sent) != len(fragments) {
		t.Fatalf("expected %d chunks at the device, got %d", len(fragments), len(sent))
	}

	generator := synthesizer.lastGenerator()
	if generator == nil {
		t.Fatalf("expected a speech generator to be opened")
	}
	sentText := generator.sentText()
	if len(sentText) != len(fragments) || sentText[0] != fragments[0] || sentText[1] != fragments[1] {
		t.Fatalf("unexpected text sent to generator: %v", sentText)
	}
}

func TestPlayerWithoutSynthesizerCompletesImmediately(t *testing.T) {
	player := newSpeechPlayer(nil, nil)

	text := newTextBuffer()
	text.Add("never spoken")
	text.Complete()

	if err := player.synthesize(context.Background(), text, nil); err != nil {
		t.Fatalf("failed to synthesize: %v", err)
	}

	completed, err := player.play(nil)
	if err != nil {
		t.Fatalf("unexpected playback error: %v", err)
	}
	if !completed {
		t.Fatalf("expected silent playback to complete")
	}
}

func TestPlayerStopAllCancelsGeneratorAndClearsDevice(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	output := &stubAudioOutput{}
	player := newSpeechPlayer(synthesizer, output)

	text := newTextBuffer()
	text.Add("a reply that gets interrupted")
	text.Complete()

	if err := player.synthesize(context.Background(), text, nil); err != nil {
		t.Fatalf("failed to synthesize: %v", err)
	}

	playbackDone := make(chan bool, 1)
	go func() {
		completed, _ := player.play(nil)
		playbackDone <- completed
	}()

	waitForCondition(t, 2*time.Second, "playback to await its drain mark", func() bool {
		return output.pendingMarkCount() > 0
	})

	player.StopAll()
	player.StopAll()

	select {
	case completed := <-playbackDone:
		if completed {
			t.Fatalf("expected stopped playback to report incomplete")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stopped playback to return")
	}

	if output.clearCalls() != 1 {
		t.Fatalf("expected 1 device clear, got %d", output.clearCalls())
	}
	if !synthesizer.lastGenerator().wasCancelled() {
		t.Fatalf("expected generator to be cancelled")
	}
}

func TestPlayerSurfacesGeneratorOpenFailure(t *testing.T) {
	openErr := fmt.Errorf("speak endpoint unavailable")
	player := newSpeechPlayer(&stubSynthesizer{newErr: openErr}, nil)

	text := newTextBuffer()
	text.Add("unreachable")
	text.Complete()

	err := player.synthesize(context.Background(), text, nil)
	if !errors.Is(err, openErr) {
		t.Fatalf("expected open failure to surface, got %v", err)
	}

	// The audio buffer must close so the playback worker is not left waiting.
	completed, err := player.play(nil)
	if err != nil {
		t.Fatalf("unexpected playback error: %v", err)
	}
	if !completed {
		t.Fatalf("expected empty playback to finish")
	}
}

func TestPlayerReportsDeviceRefusal(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	output := &failingAudioOutput{}
	player := newSpeechPlayer(synthesizer, output)

	text := newTextBuffer()
	text.Add("audio the device rejects")
	text.Complete()

	if err := player.synthesize(context.Background(), text, nil); err != nil {
		t.Fatalf("failed to synthesize: %v", err)
	}

	completed, err := player.play(nil)
	if completed {
		t.Fatalf("expected refused playback to report incomplete")
	}
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
	if !synthesizer.lastGenerator().wasCancelled() {
		t.Fatalf("expected refusal to cancel the generator")
	}
}

func TestPlayerStopBeforeGeneratorOpens(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	player := newSpeechPlayer(synthesizer, nil)
	player.StopAll()

	text := newTextBuffer()
	text.Add("too late")
	text.Complete()

	if err := player.synthesize(context.Background(), text, nil); err != nil {
		t.Fatalf("failed to synthesize: %v", err)
	}

	if generator := synthesizer.lastGenerator(); generator != nil && !generator.wasCancelled() {
		t.Fatalf("expected a generator opened after stop to be cancelled")
	}
}

type failingAudioOutput struct {
	stubAudioOutput
}

func (o *failingAudioOutput) SendAudio([]byte) error {
	return fmt.Errorf("device gone")
}
