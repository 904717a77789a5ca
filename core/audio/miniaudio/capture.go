package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/tkresnik/aria-core/core/audio"
)

// Capture parameters matching audio.DefaultEncodingInfo: mono 16-bit PCM in
// 480-frame periods.
const (
	captureFormat    = malgo.FormatS16
	captureChannels  = 1
	capturePeriod    = 480
	capturePeriodCnt = 3
)

// captureClient wraps one malgo capture device. Start installs the onAudio
// callback before the device runs and Stop removes it after the device
// stopped; frames arriving in between are dropped.
type captureClient struct {
	device     *malgo.Device
	frameBytes int

	onAudio func(frame []byte)

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frameBytes = malgo.SampleSizeInBytes(captureFormat) * captureChannels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(audio.DefaultSampleRate)
	config.Capture.Format = captureFormat
	config.Capture.Channels = captureChannels
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = capturePeriod
	config.Periods = capturePeriodCnt

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: c.deliverFrames,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	c.device = device

	return nil
}

// deliverFrames runs on the audio thread and must not block, so the callback
// read is deliberately unsynchronized; the Start/Stop ordering above keeps it
// safe.
func (c *captureClient) deliverFrames(_, in []byte, frameCount uint32) {
	n := int(frameCount) * c.frameBytes
	if n == 0 || len(in) < n {
		return
	}
	if deliver := c.onAudio; deliver != nil {
		deliver(in[:n])
	}
}

func (c *captureClient) Start(onAudio func(frame []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if c.device.IsStarted() {
		return nil
	}

	c.onAudio = onAudio
	if err := c.device.Start(); err != nil {
		c.onAudio = nil
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	c.onAudio = nil
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onAudio = nil
	return nil
}
