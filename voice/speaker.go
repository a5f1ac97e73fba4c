package voice

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/malgo"
	mp3dec "github.com/hajimehoshi/go-mp3"
)

// ReplySpeaker plays synthesized assistant replies (MP3 bytes) on the
// default output device and blocks until playback ends. The dialogue
// flow depends on that blocking: the next capture phase starts only
// after the reply has finished.
type ReplySpeaker struct {
	ctx *malgo.AllocatedContext
	mu  sync.Mutex
}

// NewReplySpeaker creates a speaker on the shared audio context.
func NewReplySpeaker(ctx *malgo.AllocatedContext) *ReplySpeaker {
	return &ReplySpeaker{ctx: ctx}
}

// Play decodes and plays data, returning once the audio has fully
// played out. Only one reply plays at a time.
func (s *ReplySpeaker) Play(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decoder, err := mp3dec.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode reply audio: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(decoder.SampleRate())
	deviceConfig.Alsa.NoMMap = 1

	done := make(chan struct{})
	var once sync.Once

	onSendFrames := func(pOutputSamples, pInputSamples []byte, framecount uint32) {
		n, err := io.ReadFull(decoder, pOutputSamples)
		if err != nil && n < len(pOutputSamples) {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return fmt.Errorf("failed to init reply playback: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start reply playback: %w", err)
	}

	<-done
	return nil
}
