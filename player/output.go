package player

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gen2brain/malgo"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// SpeakerOutput streams an MP3 over HTTP, decodes it and plays it on the
// default playback device. One SpeakerOutput is one lane; the controller
// holds two.
type SpeakerOutput struct {
	ctx *malgo.AllocatedContext

	mu         sync.Mutex
	device     *malgo.Device
	body       io.ReadCloser
	decoder    *mp3.Decoder
	sampleRate int
	offset     float64
	bytesRead  int64
	paused     bool
	volume     float64
}

// NewSpeakerOutput initializes a playback lane on the shared audio
// context.
func NewSpeakerOutput(ctx *malgo.AllocatedContext) *SpeakerOutput {
	return &SpeakerOutput{ctx: ctx, volume: 1}
}

// Start replaces the lane's stream with url, skipping to offset seconds.
// HTTP bodies are not seekable, so the offset is reached by decoding and
// discarding PCM up to it.
func (o *SpeakerOutput) Start(url string, offset float64) error {
	o.Stop()

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("audio fetch returned %d", resp.StatusCode)
	}

	decoder, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	// go-mp3 always outputs 16-bit stereo: 4 bytes per sample frame.
	skipBytes := int64(offset * float64(decoder.SampleRate()) * 4)
	skipBytes -= skipBytes % 4
	if skipBytes > 0 {
		if _, err := io.CopyN(io.Discard, decoder, skipBytes); err != nil {
			resp.Body.Close()
			return fmt.Errorf("failed to skip to offset: %w", err)
		}
	}

	o.mu.Lock()
	o.body = resp.Body
	o.decoder = decoder
	o.sampleRate = decoder.SampleRate()
	o.offset = offset
	o.bytesRead = 0
	o.paused = false
	o.mu.Unlock()

	return o.startDevice()
}

func (o *SpeakerOutput) startDevice() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(o.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSendFrames := func(pOutputSamples, pInputSamples []byte, framecount uint32) {
		o.mu.Lock()
		decoder := o.decoder
		paused := o.paused
		volume := o.volume
		o.mu.Unlock()

		if decoder == nil || paused {
			return
		}

		n, err := io.ReadFull(decoder, pOutputSamples)
		o.mu.Lock()
		o.bytesRead += int64(n)
		o.mu.Unlock()

		if volume < 1 {
			scaleS16(pOutputSamples[:n], volume)
		}

		if err != nil && err != io.ErrUnexpectedEOF {
			// End of stream: leave the rest of the buffer silent.
			return
		}
	}

	device, err := malgo.InitDevice(o.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		o.Stop()
		return fmt.Errorf("failed to init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		o.Stop()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	o.mu.Lock()
	o.device = device
	o.mu.Unlock()

	log.Printf("[Player] Playback started (rate=%d, offset=%.1fs)", o.sampleRate, o.offset)
	return nil
}

// Stop tears the lane down and releases the stream.
func (o *SpeakerOutput) Stop() {
	o.mu.Lock()
	device := o.device
	body := o.body
	o.device = nil
	o.body = nil
	o.decoder = nil
	o.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	if body != nil {
		body.Close()
	}
}

// SetPaused pauses or resumes the lane without tearing down the stream.
func (o *SpeakerOutput) SetPaused(paused bool) {
	o.mu.Lock()
	o.paused = paused
	o.mu.Unlock()
}

// SetVolume scales decoded samples before they reach the device.
func (o *SpeakerOutput) SetVolume(volume float64) {
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

// scaleS16 multiplies little-endian 16-bit samples in place.
func scaleS16(buf []byte, volume float64) {
	for i := 0; i+1 < len(buf); i += 2 {
		s := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
		s = int16(float64(s) * volume)
		buf[i] = byte(uint16(s))
		buf[i+1] = byte(uint16(s) >> 8)
	}
}

// Position is the absolute stream position in seconds, offset included.
func (o *SpeakerOutput) Position() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sampleRate == 0 {
		return o.offset
	}
	return o.offset + float64(o.bytesRead/4)/float64(o.sampleRate)
}
