// Package portaudio provides a blocking-stream audio device backed by
// PortAudio. It is a fallback for hosts where miniaudio is unavailable.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
	"github.com/tkresnik/aria-core/core/audio"
)

type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	captureCancel context.CancelFunc

	in  []int16
	out []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Stream reads microphone frames until the context is cancelled, handing each
// one to onAudio as little-endian 16-bit PCM.
func (c *Client) Stream(ctx context.Context, onAudio func(frame []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				log.Printf("Failed to read from portaudio stream: %v", err)
				continue
			}

			audioBuffer := bytes.Buffer{}
			_ = binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

// StartCapture runs the read loop in the background until StopCapture or the
// context ends. Starting an already-capturing client is a no-op.
func (c *Client) StartCapture(ctx context.Context, onAudio func(frame []byte)) error {
	if c.captureCancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c.captureCancel = cancel
	go func() {
		if err := c.Stream(ctx, onAudio); err != nil {
			log.Printf("Portaudio capture ended: %v", err)
		}
	}()
	return nil
}

func (c *Client) StopCapture() error {
	if c.captureCancel != nil {
		c.captureCancel()
		c.captureCancel = nil
	}
	return nil
}

func (c *Client) Close() {
	c.stream.Close()
	_ = portaudio.Terminate()
}

func (c *Client) SendAudio(frame []byte) error {
	bufferSize := c.bufferSize * 2

	frame = append(c.leftoverAudio, frame...)
	for i := range len(frame)/bufferSize + 1 {
		if (i+1)*bufferSize > len(frame) {
			c.leftoverAudio = make([]byte, len(frame)-i*bufferSize)
			copy(c.leftoverAudio, frame[i*bufferSize:])
			break
		}

		_ = binary.Read(bytes.NewBuffer(frame[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		_ = c.stream.Write()
	}

	return nil
}

func (c *Client) ClearBuffer() {
	c.leftoverAudio = nil
}

// AwaitMark plays out whatever is left in the local buffer, padding the final
// partial block with silence so nothing queued is dropped.
func (c *Client) AwaitMark() error {
	bufferSize := c.bufferSize * 2

	frame := c.leftoverAudio
	c.leftoverAudio = nil
	for i := range len(frame)/bufferSize + 1 {
		block := frame[min(i*bufferSize, len(frame)):min((i+1)*bufferSize, len(frame))]
		if len(block) == 0 {
			break
		}
		if len(block) < bufferSize {
			padded := make([]byte, bufferSize)
			copy(padded, block)
			block = padded
		}

		_ = binary.Read(bytes.NewBuffer(block), binary.LittleEndian, c.out)
		_ = c.stream.Write()
	}
	return nil
}

// Mark flushes the local remainder and confirms. Writes block until played
// out, so once AwaitMark returns everything before the mark is audible.
func (c *Client) Mark(mark string, callback func(string)) error {
	if err := c.AwaitMark(); err != nil {
		return err
	}
	go callback(mark)
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}
