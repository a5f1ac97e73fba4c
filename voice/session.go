package voice

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Recorder captures one utterance and returns its samples once the
// speaker goes quiet.
type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

// meterFFTSize is the block the spectrum meter analyses each tick.
const meterFFTSize = 2048

// captureSession owns the resources of one recording: the sample sink,
// the rolling meter window and the endpoint timer. reset detaches it
// from the microphone stream; nothing survives the session.
type captureSession struct {
	sink     chan []float32
	endpoint *Endpointer
	buffer   []float32
	recent   []float32
	detach   func()
}

func (s *captureSession) reset() {
	s.detach()
	s.endpoint.Reset()
	s.buffer = nil
	s.recent = nil
}

func (s *captureSession) absorb(samples []float32) {
	s.buffer = append(s.buffer, samples...)
	s.recent = append(s.recent, samples...)
	if len(s.recent) > meterFFTSize {
		s.recent = s.recent[len(s.recent)-meterFFTSize:]
	}
}

// MicRecorder records utterances from the shared microphone stream.
// The pump calls Feed with every block; blocks arriving while no
// session is active are dropped.
type MicRecorder struct {
	capture *MicCapture
	meter   *SpectrumMeter

	mu   sync.Mutex
	sink chan []float32
}

// NewMicRecorder creates a recorder over the running capture.
func NewMicRecorder(capture *MicCapture) *MicRecorder {
	return &MicRecorder{
		capture: capture,
		meter:   NewSpectrumMeter(meterFFTSize),
	}
}

// Feed routes a microphone block into the active session, if any.
func (r *MicRecorder) Feed(samples []float32) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()
	if sink == nil {
		return
	}
	select {
	case sink <- samples:
	default:
	}
}

// Record captures until the spectrum average stays below the silence
// threshold for a full window, then returns everything heard. It fails
// if the microphone is not running or a session is already active.
func (r *MicRecorder) Record(ctx context.Context) ([]float32, error) {
	if !r.capture.Running() {
		return nil, fmt.Errorf("microphone unavailable")
	}

	session := &captureSession{
		sink:     make(chan []float32, 64),
		endpoint: NewEndpointer(SilenceThreshold, SilenceWindow),
	}

	r.mu.Lock()
	if r.sink != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("capture session already active")
	}
	r.sink = session.sink
	r.mu.Unlock()

	session.detach = func() {
		r.mu.Lock()
		r.sink = nil
		r.mu.Unlock()
	}
	defer session.reset()

	ticker := time.NewTicker(MeterInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case samples := <-session.sink:
			session.absorb(samples)
		case now := <-ticker.C:
			avg := r.meter.Average(session.recent)
			if session.endpoint.Observe(avg, now) {
				return session.buffer, nil
			}
		}
	}
}
