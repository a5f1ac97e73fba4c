package voice

import (
	"bytes"
	"fmt"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// mp3BlockSize is the Layer III granule size; the encoder wants whole
// blocks per channel.
const mp3BlockSize = 1152

// EncodeMP3 compresses mono float32 samples into an MP3 byte buffer for
// upload. Samples outside [-1, 1] are clamped.
func EncodeMP3(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to encode")
	}

	pcm := make([]int16, 0, len(samples))
	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		pcm = append(pcm, int16(s*32767))
	}

	// Pad to a whole number of encoder blocks with silence.
	if rem := len(pcm) % mp3BlockSize; rem != 0 {
		pcm = append(pcm, make([]int16, mp3BlockSize-rem)...)
	}

	var buf bytes.Buffer
	encoder := mp3.NewEncoder(sampleRate, 1)
	if err := encoder.Write(&buf, pcm); err != nil {
		return nil, fmt.Errorf("mp3 encode failed: %w", err)
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("encoder produced no output")
	}
	return buf.Bytes(), nil
}
