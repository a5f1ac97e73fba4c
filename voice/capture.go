package voice

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// CaptureSampleRate is the microphone rate. 16kHz mono is what both the
// keyword spotters and the transcription backend expect.
const CaptureSampleRate = 16000

// MicCapture owns the microphone device and exposes its samples as a
// stream. It runs continuously: the detector set listens to it all the
// time, and a capture session taps the same stream while recording.
type MicCapture struct {
	ctx      *malgo.AllocatedContext
	deviceID *malgo.DeviceID

	mu      sync.Mutex
	device  *malgo.Device
	running bool

	dataChan chan []float32
}

// NewMicCapture creates a capture on the shared audio context.
func NewMicCapture(ctx *malgo.AllocatedContext) *MicCapture {
	return &MicCapture{
		ctx:      ctx,
		dataChan: make(chan []float32, 1000),
	}
}

// SetDeviceByName selects a microphone by partial name match. Empty name
// keeps the default device.
func (c *MicCapture) SetDeviceByName(name string) error {
	if name == "" {
		c.deviceID = nil
		return nil
	}

	devices, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	nameLower := strings.ToLower(name)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name()), nameLower) {
			id := dev.ID
			c.deviceID = &id
			log.Printf("[Mic] Using device: %s", dev.Name())
			return nil
		}
	}
	return fmt.Errorf("microphone not found: %s", name)
}

// Start opens the microphone and begins streaming samples.
func (c *MicCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("already running")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = CaptureSampleRate
	deviceConfig.Alsa.NoMMap = 1

	if c.deviceID != nil {
		deviceConfig.Capture.DeviceID = c.deviceID.Pointer()
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		sampleCount := int(framecount)
		if len(pInputSamples) != sampleCount*4 {
			return
		}

		samples := make([]float32, sampleCount)
		for i := 0; i < sampleCount; i++ {
			bits := uint32(pInputSamples[i*4]) | uint32(pInputSamples[i*4+1])<<8 |
				uint32(pInputSamples[i*4+2])<<16 | uint32(pInputSamples[i*4+3])<<24
			samples[i] = math.Float32frombits(bits)
		}

		// Drop instead of blocking: the audio callback must never stall.
		select {
		case c.dataChan <- samples:
		default:
		}
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return fmt.Errorf("failed to init microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start microphone: %w", err)
	}

	c.device = device
	c.running = true
	log.Printf("[Mic] Capture started (rate=%d)", CaptureSampleRate)
	return nil
}

// Stop closes the microphone device.
func (c *MicCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.device.Uninit()
	c.device = nil
	c.running = false
	log.Println("[Mic] Capture stopped")
}

// Running reports whether the microphone is open.
func (c *MicCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Data returns the sample stream.
func (c *MicCapture) Data() <-chan []float32 {
	return c.dataChan
}
