package voice

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SilenceThreshold is the byte-scaled spectrum average below which audio
// counts as silence.
const SilenceThreshold = 30

// Byte-scale dB range. A bin at minDB maps to 0, a bin at maxDB to 255.
const (
	meterMinDB = -100.0
	meterMaxDB = -30.0
)

// SpectrumMeter turns a block of samples into a single 0..255 loudness
// value: magnitude spectrum, per-bin dB, byte-scaled, averaged across
// bins. Speech spreads energy over many bins and lands well above
// SilenceThreshold; room noise does not.
type SpectrumMeter struct {
	size   int
	fft    *fourier.FFT
	window []float64
	frame  []float64
}

// NewSpectrumMeter creates a meter with the given FFT size, which must
// be a power of two.
func NewSpectrumMeter(size int) *SpectrumMeter {
	return &SpectrumMeter{
		size:   size,
		fft:    fourier.NewFFT(size),
		window: hannWindow(size),
		frame:  make([]float64, size),
	}
}

// Average computes the byte-scaled spectrum average of the most recent
// meter-sized block of samples. Shorter input is zero-padded.
func (m *SpectrumMeter) Average(samples []float32) float64 {
	if len(samples) > m.size {
		samples = samples[len(samples)-m.size:]
	}
	for i := range m.frame {
		if i < len(samples) {
			m.frame[i] = float64(samples[i]) * m.window[i]
		} else {
			m.frame[i] = 0
		}
	}

	coeffs := m.fft.Coefficients(nil, m.frame)

	var sum float64
	bins := m.size/2 + 1
	for i := 0; i < bins; i++ {
		mag := cmplxAbs(coeffs[i]) / float64(m.size)
		db := meterMinDB
		if mag > 0 {
			db = 20 * math.Log10(mag)
		}
		scaled := 255 * (db - meterMinDB) / (meterMaxDB - meterMinDB)
		if scaled < 0 {
			scaled = 0
		} else if scaled > 255 {
			scaled = 255
		}
		sum += scaled
	}
	return sum / float64(bins)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}
