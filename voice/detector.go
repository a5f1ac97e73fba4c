package voice

import (
	"log"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// WakeEvent identifies which trigger phrase fired.
type WakeEvent int

const (
	// WakePrimary starts a dialogue.
	WakePrimary WakeEvent = iota
	// WakeSaveClip saves a clip of the last played window.
	WakeSaveClip
	// WakeSkipForward and WakeSkipBackward act on playback immediately,
	// without entering the dialogue flow.
	WakeSkipForward
	WakeSkipBackward
)

func (e WakeEvent) String() string {
	switch e {
	case WakePrimary:
		return "primary"
	case WakeSaveClip:
		return "save-clip"
	case WakeSkipForward:
		return "skip-forward"
	case WakeSkipBackward:
		return "skip-backward"
	}
	return "unknown"
}

// DetectorConfig describes one wake-word spotter.
type DetectorConfig struct {
	Event        WakeEvent
	Encoder      string // transducer model paths
	Decoder      string
	Joiner       string
	Tokens       string
	KeywordsFile string
}

type detector struct {
	event   WakeEvent
	spotter *sherpa.KeywordSpotter
	stream  *sherpa.OnlineStream
}

// DetectorSet runs the wake-word spotters over one shared microphone
// stream. Each spotter initializes independently: one failing to load
// must not take the others down.
type DetectorSet struct {
	mu        sync.Mutex
	detectors []*detector
	events    chan WakeEvent
}

// NewDetectorSet initializes a spotter per config. Configs that fail to
// load are logged and skipped.
func NewDetectorSet(configs []DetectorConfig) *DetectorSet {
	s := &DetectorSet{events: make(chan WakeEvent, 8)}

	for _, cfg := range configs {
		d := newDetector(cfg)
		if d == nil {
			log.Printf("[Wake] Detector %s failed to initialize, skipping", cfg.Event)
			continue
		}
		s.detectors = append(s.detectors, d)
		log.Printf("[Wake] Detector %s ready", cfg.Event)
	}

	if len(s.detectors) == 0 {
		log.Println("[Wake] No detectors available, voice triggers disabled")
	}
	return s
}

func newDetector(cfg DetectorConfig) *detector {
	spotterConfig := sherpa.KeywordSpotterConfig{}
	spotterConfig.FeatConfig = sherpa.FeatureConfig{
		SampleRate: CaptureSampleRate,
		FeatureDim: 80,
	}
	spotterConfig.ModelConfig.Transducer.Encoder = cfg.Encoder
	spotterConfig.ModelConfig.Transducer.Decoder = cfg.Decoder
	spotterConfig.ModelConfig.Transducer.Joiner = cfg.Joiner
	spotterConfig.ModelConfig.Tokens = cfg.Tokens
	spotterConfig.ModelConfig.NumThreads = 1
	spotterConfig.ModelConfig.Provider = "cpu"
	spotterConfig.KeywordsFile = cfg.KeywordsFile

	spotter := sherpa.NewKeywordSpotter(&spotterConfig)
	if spotter == nil {
		return nil
	}
	stream := sherpa.NewKeywordStream(spotter)
	if stream == nil {
		sherpa.DeleteKeywordSpotter(spotter)
		return nil
	}
	return &detector{event: cfg.Event, spotter: spotter, stream: stream}
}

// Feed pushes microphone samples through every spotter and emits an
// event for each detection. Never blocks; if the event queue is full
// the detection is dropped.
func (s *DetectorSet) Feed(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.detectors {
		d.stream.AcceptWaveform(CaptureSampleRate, samples)
		for d.spotter.IsReady(d.stream) {
			d.spotter.Decode(d.stream)
			result := d.spotter.GetResult(d.stream)
			if result == nil || result.Keyword == "" {
				continue
			}
			d.spotter.Reset(d.stream)
			log.Printf("[Wake] Detected %s (%q)", d.event, result.Keyword)
			select {
			case s.events <- d.event:
			default:
				log.Printf("[Wake] Event queue full, dropping %s", d.event)
			}
		}
	}
}

// Events returns the detection stream.
func (s *DetectorSet) Events() <-chan WakeEvent {
	return s.events
}

// Close releases every spotter.
func (s *DetectorSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.detectors {
		sherpa.DeleteOnlineStream(d.stream)
		sherpa.DeleteKeywordSpotter(d.spotter)
	}
	s.detectors = nil
}
