// Package voice implements the wake-word driven dialogue session: the
// detectors, the silence-endpointed recorder, and the state machine
// that ties them to transcription, chat and playback.
package voice

import (
	"context"
	"encoding/base64"
	"log"
	"strings"
	"sync"
	"time"

	"heyhost/internal/service"
	"heyhost/player"
)

// Phase is the externally visible state of the voice session.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseListeningWake   Phase = "listening_wake_word"
	PhaseListeningSpeech Phase = "listening_speech"
	PhaseTranscribing    Phase = "transcribing"
)

// Fixed scheduling pauses between dialogue phases.
const (
	replyGapDelay        = 500 * time.Millisecond
	noAudioContinueDelay = 1000 * time.Millisecond
	noAudioEndDelay      = 3000 * time.Millisecond
	clipToastDuration    = 2 * time.Second
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(audio []byte) (string, error)
}

// Chatter answers a question given the conversation so far.
type Chatter interface {
	Chat(question string, history []service.Message) (service.ChatReply, error)
}

// Speaker plays a synthesized reply and returns when it has finished.
type Speaker interface {
	Play(data []byte) error
}

// Playback is the machine's one-way view of the player. Commands are
// fire-and-forget; IsPlaying exists only to decide whether a resume is
// meaningful.
type Playback interface {
	Dispatch(cmd player.Command)
	IsPlaying() bool
}

// MachineConfig wires the machine's collaborators.
type MachineConfig struct {
	Recorder    Recorder
	Transcriber Transcriber
	Chatter     Chatter
	Speaker     Speaker
	Playback    Playback
	// SaveClip captures the trailing playback window as a saved clip.
	SaveClip func() error
	// SaveQA persists a finished question/answer turn.
	SaveQA func(question, answer string)
}

// Machine is the voice session state machine. Wake events arrive from
// the detector set; the reentrancy gate serializes them so only one
// wake-triggered action runs at a time, whatever the displayed phase.
type Machine struct {
	recorder    Recorder
	transcriber Transcriber
	chatter     Chatter
	speaker     Speaker
	playback    Playback
	saveClip    func() error
	saveQA      func(question, answer string)

	// sleep is swapped out in tests.
	sleep func(time.Duration)

	mu             sync.Mutex
	phase          Phase
	gateClaimed    bool
	stickyContinue bool
	wasPlaying     bool
	history        []service.Message

	onPhase      func(Phase)
	onTranscript func(role, text string)
	onNotice     func(text string, d time.Duration)
}

// NewMachine creates an idle machine.
func NewMachine(cfg MachineConfig) *Machine {
	return &Machine{
		recorder:    cfg.Recorder,
		transcriber: cfg.Transcriber,
		chatter:     cfg.Chatter,
		speaker:     cfg.Speaker,
		playback:    cfg.Playback,
		saveClip:    cfg.SaveClip,
		saveQA:      cfg.SaveQA,
		sleep:       time.Sleep,
		phase:       PhaseIdle,
	}
}

// SetOnPhase registers a phase-change callback.
func (m *Machine) SetOnPhase(fn func(Phase)) {
	m.mu.Lock()
	m.onPhase = fn
	m.mu.Unlock()
}

// SetOnTranscript registers a callback for transcript lines shown to
// the user. Role is "user", "assistant" or "system".
func (m *Machine) SetOnTranscript(fn func(role, text string)) {
	m.mu.Lock()
	m.onTranscript = fn
	m.mu.Unlock()
}

// SetOnNotice registers a callback for transient status toasts.
func (m *Machine) SetOnNotice(fn func(text string, d time.Duration)) {
	m.mu.Lock()
	m.onNotice = fn
	m.mu.Unlock()
}

// Phase returns the current displayed phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Run consumes wake events until ctx is done. Each event is handled in
// its own goroutine; the gate, not the loop, enforces exclusivity.
func (m *Machine) Run(ctx context.Context, events <-chan WakeEvent) {
	m.setPhase(PhaseListeningWake)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			go m.HandleWake(ctx, ev)
		}
	}
}

// HandleWake reacts to one wake-word detection. Skip words never claim
// the gate, but a claimed gate still silences them: a stray "skip"
// detection mid-dialogue must not seek the paused episode.
func (m *Machine) HandleWake(ctx context.Context, ev WakeEvent) {
	switch ev {
	case WakeSkipForward, WakeSkipBackward:
		if m.gateBusy() {
			log.Printf("[Voice] Ignoring %s wake word, another action is in progress", ev)
			return
		}
		if ev == WakeSkipForward {
			m.playback.Dispatch(player.CmdSkipForward)
		} else {
			m.playback.Dispatch(player.CmdSkipBackward)
		}
		return
	}

	if !m.claimGate() {
		log.Printf("[Voice] Ignoring %s wake word, another action is in progress", ev)
		return
	}

	switch ev {
	case WakeSaveClip:
		m.handleSaveClip()
	case WakePrimary:
		m.startDialogue(ctx)
	}
}

func (m *Machine) handleSaveClip() {
	defer m.releaseGate()

	m.notice("Generating title…", 0)
	if err := m.saveClip(); err != nil {
		log.Printf("[Voice] Clip save failed: %v", err)
		m.notice("Couldn't save clip", clipToastDuration)
		return
	}
	m.notice("Clip saved!", clipToastDuration)
}

func (m *Machine) startDialogue(ctx context.Context) {
	m.mu.Lock()
	m.wasPlaying = m.playback.IsPlaying()
	m.mu.Unlock()
	m.playback.Dispatch(player.CmdPause)

	for m.captureTurn(ctx) {
	}
}

// captureTurn runs one listen-transcribe-chat round and reports whether
// another round should follow.
func (m *Machine) captureTurn(ctx context.Context) bool {
	m.setPhase(PhaseListeningSpeech)

	samples, err := m.recorder.Record(ctx)
	if err != nil {
		log.Printf("[Voice] Capture failed: %v", err)
		m.releaseGate()
		m.setPhase(PhaseListeningWake)
		return false
	}

	m.setPhase(PhaseTranscribing)

	audio, err := EncodeMP3(samples, CaptureSampleRate)
	if err != nil {
		m.failTurn("Couldn't process the recording.")
		return false
	}

	text, err := m.transcriber.Transcribe(audio)
	if err != nil {
		log.Printf("[Voice] Transcription failed: %v", err)
		m.failTurn("Sorry, I couldn't hear that.")
		return false
	}
	if strings.TrimSpace(text) == "" {
		m.transcript("system", "(No speech detected)")
		m.endDialogue(false)
		return false
	}

	m.transcript("user", text)
	m.appendHistory("user", text)

	reply, err := m.chatter.Chat(text, m.historyCopy())
	if err != nil {
		log.Printf("[Voice] Chat failed: %v", err)
		m.failTurn("Sorry, something went wrong.")
		return false
	}

	if reply.FunctionCall == service.FunctionEndConversation {
		m.endDialogue(true)
		return false
	}

	m.appendHistory("assistant", reply.Reply)
	m.transcript("assistant", reply.Reply)
	if m.saveQA != nil {
		m.saveQA(text, reply.Reply)
	}
	if reply.WantsRepeat() {
		m.setSticky(true)
	}

	if reply.Audio != "" {
		data, decErr := base64.StdEncoding.DecodeString(reply.Audio)
		if decErr != nil {
			log.Printf("[Voice] Bad reply audio: %v", decErr)
		} else if playErr := m.speaker.Play(data); playErr != nil {
			log.Printf("[Voice] Reply playback failed: %v", playErr)
		}
		if reply.WantsRepeat() || m.sticky() {
			m.sleep(replyGapDelay)
			return true
		}
		m.endDialogue(true)
		return false
	}

	if reply.WantsRepeat() {
		m.sleep(noAudioContinueDelay)
		return true
	}
	m.sleep(noAudioEndDelay)
	m.endDialogue(true)
	return false
}

// endDialogue returns the machine to wake-word listening, optionally
// resuming playback that the dialogue paused.
func (m *Machine) endDialogue(resume bool) {
	m.mu.Lock()
	wasPlaying := m.wasPlaying
	m.history = nil
	m.stickyContinue = false
	m.mu.Unlock()

	if resume && wasPlaying {
		m.playback.Dispatch(player.CmdResume)
	}
	m.releaseGate()
	m.setPhase(PhaseListeningWake)
}

// failTurn surfaces an error line and resets the session.
func (m *Machine) failTurn(text string) {
	m.transcript("system", text)
	m.mu.Lock()
	m.history = nil
	m.stickyContinue = false
	m.mu.Unlock()
	m.releaseGate()
	m.setPhase(PhaseListeningWake)
}

func (m *Machine) claimGate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gateClaimed {
		return false
	}
	m.gateClaimed = true
	return true
}

func (m *Machine) gateBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateClaimed
}

func (m *Machine) releaseGate() {
	m.mu.Lock()
	m.gateClaimed = false
	m.mu.Unlock()
}

func (m *Machine) setSticky(v bool) {
	m.mu.Lock()
	m.stickyContinue = v
	m.mu.Unlock()
}

func (m *Machine) sticky() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stickyContinue
}

func (m *Machine) appendHistory(role, content string) {
	m.mu.Lock()
	m.history = append(m.history, service.Message{Role: role, Content: content})
	m.mu.Unlock()
}

func (m *Machine) historyCopy() []service.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]service.Message, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Machine) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	fn := m.onPhase
	m.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (m *Machine) transcript(role, text string) {
	m.mu.Lock()
	fn := m.onTranscript
	m.mu.Unlock()
	if fn != nil {
		fn(role, text)
	}
}

func (m *Machine) notice(text string, d time.Duration) {
	m.mu.Lock()
	fn := m.onNotice
	m.mu.Unlock()
	if fn != nil {
		fn(text, d)
	}
}
