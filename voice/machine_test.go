package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"heyhost/internal/service"
	"heyhost/player"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeRecorder) Record(ctx context.Context) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return make([]float32, 1600), nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(audio []byte) (string, error) {
	return t.text, t.err
}

type fakeChatter struct {
	replies   []service.ChatReply
	histories [][]service.Message
	err       error
}

func (c *fakeChatter) Chat(question string, history []service.Message) (service.ChatReply, error) {
	c.histories = append(c.histories, history)
	if c.err != nil {
		return service.ChatReply{}, c.err
	}
	if len(c.replies) == 0 {
		return service.ChatReply{Reply: "ok"}, nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

type fakeSpeaker struct {
	plays int
}

func (s *fakeSpeaker) Play(data []byte) error {
	s.plays++
	return nil
}

type fakePlayback struct {
	mu       sync.Mutex
	playing  bool
	commands []player.Command
}

func (p *fakePlayback) Dispatch(cmd player.Command) {
	p.mu.Lock()
	p.commands = append(p.commands, cmd)
	p.mu.Unlock()
}

func (p *fakePlayback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayback) count(cmd player.Command) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.commands {
		if c == cmd {
			n++
		}
	}
	return n
}

type machineHarness struct {
	machine     *Machine
	recorder    *fakeRecorder
	transcriber *fakeTranscriber
	chatter     *fakeChatter
	speaker     *fakeSpeaker
	playback    *fakePlayback
	slept       []time.Duration
	phases      []Phase
	lines       []string
	notices     []string
	saveErr     error
	saves       int
	savedQAs    [][2]string
}

func newHarness() *machineHarness {
	h := &machineHarness{
		recorder:    &fakeRecorder{},
		transcriber: &fakeTranscriber{text: "who is the guest"},
		chatter:     &fakeChatter{},
		speaker:     &fakeSpeaker{},
		playback:    &fakePlayback{playing: true},
	}
	h.machine = NewMachine(MachineConfig{
		Recorder:    h.recorder,
		Transcriber: h.transcriber,
		Chatter:     h.chatter,
		Speaker:     h.speaker,
		Playback:    h.playback,
		SaveClip: func() error {
			h.saves++
			return h.saveErr
		},
		SaveQA: func(question, answer string) {
			h.savedQAs = append(h.savedQAs, [2]string{question, answer})
		},
	})
	h.machine.sleep = func(d time.Duration) { h.slept = append(h.slept, d) }
	h.machine.SetOnPhase(func(p Phase) { h.phases = append(h.phases, p) })
	h.machine.SetOnTranscript(func(role, text string) {
		h.lines = append(h.lines, fmt.Sprintf("%s: %s", role, text))
	})
	h.machine.SetOnNotice(func(text string, d time.Duration) {
		h.notices = append(h.notices, text)
	})
	return h
}

func replyAudio() string {
	return base64.StdEncoding.EncodeToString([]byte("mp3"))
}

func TestMachine_DialogueEndsOnFunctionCall(t *testing.T) {
	h := newHarness()
	h.chatter.replies = []service.ChatReply{
		{Reply: "Goodbye.", FunctionCall: service.FunctionEndConversation},
	}

	h.machine.HandleWake(context.Background(), WakePrimary)

	if h.playback.count(player.CmdPause) != 1 {
		t.Error("playback not paused on wake")
	}
	if h.playback.count(player.CmdResume) != 1 {
		t.Error("playback not resumed after end_conversation")
	}
	if h.machine.Phase() != PhaseListeningWake {
		t.Errorf("phase = %s, want %s", h.machine.Phase(), PhaseListeningWake)
	}
	if len(h.machine.historyCopy()) != 0 {
		t.Error("history not cleared")
	}
	if !h.machine.claimGate() {
		t.Error("gate still claimed after dialogue ended")
	}
}

func TestMachine_SingleTurnWithAudioEnds(t *testing.T) {
	h := newHarness()
	h.chatter.replies = []service.ChatReply{
		{Reply: "Irving Finkel.", Audio: replyAudio()},
	}

	h.machine.HandleWake(context.Background(), WakePrimary)

	if h.speaker.plays != 1 {
		t.Errorf("reply played %d times, want 1", h.speaker.plays)
	}
	if h.recorder.calls != 1 {
		t.Errorf("recorder called %d times, want 1", h.recorder.calls)
	}
	if h.playback.count(player.CmdResume) != 1 {
		t.Error("playback not resumed")
	}
	if len(h.slept) != 0 {
		t.Errorf("unexpected delays %v on terminating audio turn", h.slept)
	}
	if len(h.savedQAs) != 1 || h.savedQAs[0] != [2]string{"who is the guest", "Irving Finkel."} {
		t.Errorf("saved pairs = %v", h.savedQAs)
	}
}

func TestMachine_StickyContinueSurvivesOmittedFlag(t *testing.T) {
	h := newHarness()
	h.chatter.replies = []service.ChatReply{
		{Reply: "turn one", Audio: replyAudio(), Repeat: "True"},
		{Reply: "turn two", Audio: replyAudio()}, // flag omitted, sticky carries it
		{Reply: "turn three"},                    // no audio, no flag: terminates
	}

	h.machine.HandleWake(context.Background(), WakePrimary)

	if h.recorder.calls != 3 {
		t.Fatalf("recorder called %d times, want 3", h.recorder.calls)
	}
	want := []time.Duration{replyGapDelay, replyGapDelay, noAudioEndDelay}
	if len(h.slept) != len(want) {
		t.Fatalf("delays = %v, want %v", h.slept, want)
	}
	for i := range want {
		if h.slept[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, h.slept[i], want[i])
		}
	}
	if h.playback.count(player.CmdResume) != 1 {
		t.Error("playback not resumed at dialogue end")
	}
	if len(h.machine.historyCopy()) != 0 {
		t.Error("history not cleared at dialogue end")
	}
}

func TestMachine_NoAudioContinueDelays(t *testing.T) {
	h := newHarness()
	h.chatter.replies = []service.ChatReply{
		{Reply: "first", Repeat: "True"},
		{Reply: "done", FunctionCall: service.FunctionEndConversation},
	}

	h.machine.HandleWake(context.Background(), WakePrimary)

	if h.recorder.calls != 2 {
		t.Fatalf("recorder called %d times, want 2", h.recorder.calls)
	}
	if len(h.slept) != 1 || h.slept[0] != noAudioContinueDelay {
		t.Errorf("delays = %v, want [%v]", h.slept, noAudioContinueDelay)
	}
}

func TestMachine_HistoryAccumulatesAcrossTurns(t *testing.T) {
	h := newHarness()
	h.chatter.replies = []service.ChatReply{
		{Reply: "answer one", Audio: replyAudio(), Repeat: "True"},
		{Reply: "answer two", Audio: replyAudio()},
		{Reply: "bye", FunctionCall: service.FunctionEndConversation},
	}

	h.machine.HandleWake(context.Background(), WakePrimary)

	if len(h.chatter.histories) != 3 {
		t.Fatalf("chat called %d times, want 3", len(h.chatter.histories))
	}
	// Second turn sees user, assistant, user; third adds another pair.
	if len(h.chatter.histories[1]) != 3 {
		t.Errorf("second turn history length = %d, want 3", len(h.chatter.histories[1]))
	}
	if len(h.chatter.histories[2]) != 5 {
		t.Errorf("third turn history length = %d, want 5", len(h.chatter.histories[2]))
	}
	if h.chatter.histories[1][1].Role != "assistant" {
		t.Errorf("history[1] role = %s", h.chatter.histories[1][1].Role)
	}
}

func TestMachine_MicFailureReturnsToWakeWord(t *testing.T) {
	h := newHarness()
	h.recorder.err = errors.New("mic denied")

	h.machine.HandleWake(context.Background(), WakePrimary)

	if h.machine.Phase() != PhaseListeningWake {
		t.Errorf("phase = %s", h.machine.Phase())
	}
	if !h.machine.claimGate() {
		t.Error("gate not released after mic failure")
	}
	if h.playback.count(player.CmdResume) != 0 {
		t.Error("resume dispatched on mic failure")
	}
}

func TestMachine_EmptyTranscriptionResets(t *testing.T) {
	h := newHarness()
	h.transcriber.text = "   "

	h.machine.HandleWake(context.Background(), WakePrimary)

	if len(h.chatter.histories) != 0 {
		t.Error("chat called for empty transcription")
	}
	if len(h.lines) != 1 || h.lines[0] != "system: (No speech detected)" {
		t.Errorf("lines = %v", h.lines)
	}
	if len(h.machine.historyCopy()) != 0 {
		t.Error("history not cleared")
	}
	if !h.machine.claimGate() {
		t.Error("gate not released")
	}
	if h.playback.count(player.CmdResume) != 0 {
		t.Error("resume dispatched for empty transcription")
	}
}

func TestMachine_TranscriptionFailureShowsError(t *testing.T) {
	h := newHarness()
	h.transcriber.err = errors.New("network down")

	h.machine.HandleWake(context.Background(), WakePrimary)

	if len(h.lines) != 1 || h.lines[0] != "system: Sorry, I couldn't hear that." {
		t.Errorf("lines = %v", h.lines)
	}
	if h.machine.Phase() != PhaseListeningWake {
		t.Errorf("phase = %s", h.machine.Phase())
	}
	if !h.machine.claimGate() {
		t.Error("gate not released")
	}
}

func TestMachine_ChatFailureClearsHistory(t *testing.T) {
	h := newHarness()
	h.chatter.err = errors.New("503")

	h.machine.HandleWake(context.Background(), WakePrimary)

	if len(h.machine.historyCopy()) != 0 {
		t.Error("history not cleared after chat failure")
	}
	if len(h.lines) == 0 || h.lines[len(h.lines)-1] != "system: Sorry, something went wrong." {
		t.Errorf("lines = %v", h.lines)
	}
}

func TestMachine_WakeIgnoredWhileGateClaimed(t *testing.T) {
	h := newHarness()
	if !h.machine.claimGate() {
		t.Fatal("could not claim gate")
	}

	h.machine.HandleWake(context.Background(), WakePrimary)
	h.machine.HandleWake(context.Background(), WakeSaveClip)

	if h.recorder.calls != 0 {
		t.Error("dialogue started despite claimed gate")
	}
	if h.saves != 0 {
		t.Error("clip saved despite claimed gate")
	}
}

func TestMachine_SkipDispatchesWithoutClaimingGate(t *testing.T) {
	h := newHarness()

	h.machine.HandleWake(context.Background(), WakeSkipForward)
	h.machine.HandleWake(context.Background(), WakeSkipBackward)

	if h.playback.count(player.CmdSkipForward) != 1 || h.playback.count(player.CmdSkipBackward) != 1 {
		t.Errorf("commands = %v", h.playback.commands)
	}
	if !h.machine.claimGate() {
		t.Error("skip left the gate claimed")
	}
}

func TestMachine_SkipIgnoredWhileGateClaimed(t *testing.T) {
	h := newHarness()
	if !h.machine.claimGate() {
		t.Fatal("could not claim gate")
	}

	h.machine.HandleWake(context.Background(), WakeSkipForward)
	h.machine.HandleWake(context.Background(), WakeSkipBackward)

	if len(h.playback.commands) != 0 {
		t.Errorf("commands dispatched during an active action: %v", h.playback.commands)
	}
}

func TestMachine_SaveClipNotices(t *testing.T) {
	h := newHarness()

	h.machine.HandleWake(context.Background(), WakeSaveClip)

	if h.saves != 1 {
		t.Fatalf("saves = %d, want 1", h.saves)
	}
	if len(h.notices) != 2 || h.notices[0] != "Generating title…" || h.notices[1] != "Clip saved!" {
		t.Errorf("notices = %v", h.notices)
	}
	if !h.machine.claimGate() {
		t.Error("gate not released after clip save")
	}
}

func TestMachine_SaveClipFailureStillReleasesGate(t *testing.T) {
	h := newHarness()
	h.saveErr = errors.New("no episode")

	h.machine.HandleWake(context.Background(), WakeSaveClip)

	if len(h.notices) != 2 || h.notices[1] != "Couldn't save clip" {
		t.Errorf("notices = %v", h.notices)
	}
	if !h.machine.claimGate() {
		t.Error("gate not released")
	}
}

func TestMachine_NoResumeWhenNothingWasPlaying(t *testing.T) {
	h := newHarness()
	h.playback.playing = false
	h.chatter.replies = []service.ChatReply{
		{Reply: "bye", FunctionCall: service.FunctionEndConversation},
	}

	h.machine.HandleWake(context.Background(), WakePrimary)

	if h.playback.count(player.CmdResume) != 0 {
		t.Error("resume dispatched although nothing was playing")
	}
}
