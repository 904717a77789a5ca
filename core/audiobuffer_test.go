package orchestration

import (
	"bytes"
	"testing"
	"time"
)

func TestAudioBufferPreservesOrder(t *testing.T) {
	buffer := newAudioBuffer()
	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, chunk := range chunks {
		buffer.Add(chunk)
	}
	buffer.AllLoaded()

	var consumed [][]byte
	for chunk := range buffer.Audio {
		consumed = append(consumed, chunk)
	}

	if len(consumed) != len(chunks) {
		t.Fatalf("expected %d chunks, got %d", len(chunks), len(consumed))
	}
	for i := range chunks {
		if !bytes.Equal(consumed[i], chunks[i]) {
			t.Fatalf("chunk %d: expected %q, got %q", i, chunks[i], consumed[i])
		}
	}
	if !buffer.played() {
		t.Fatalf("expected buffer to report played audio")
	}
}

func TestAudioBufferBlocksUntilMoreAudio(t *testing.T) {
	buffer := newAudioBuffer()

	received := make(chan []byte, 2)
	go func() {
		for chunk := range buffer.Audio {
			received <- chunk
		}
		close(received)
	}()

	select {
	case <-received:
		t.Fatalf("expected consumer to block on an empty buffer")
	case <-time.After(50 * time.Millisecond):
	}

	buffer.Add([]byte("late chunk"))

	select {
	case chunk := <-received:
		if string(chunk) != "late chunk" {
			t.Fatalf("expected late chunk, got %q", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for late chunk")
	}

	buffer.AllLoaded()
	select {
	case _, ok := <-received:
		if ok {
			t.Fatalf("expected sequence to end after all audio loaded")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for sequence to end")
	}
}

func TestAudioBufferStopDropsUnconsumedAudio(t *testing.T) {
	buffer := newAudioBuffer()
	buffer.Add([]byte("never played"))
	buffer.Stop()
	buffer.Stop()

	finished := make(chan int, 1)
	go func() {
		consumed := 0
		for range buffer.Audio {
			consumed++
		}
		finished <- consumed
	}()

	select {
	case consumed := <-finished:
		if consumed != 0 {
			t.Fatalf("expected no chunks after stop, got %d", consumed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stopped buffer to end")
	}

	if buffer.played() {
		t.Fatalf("expected no played audio after stop")
	}
}
