package voice

import (
	"testing"
	"time"
)

func TestEndpointer_FiresAfterFullWindow(t *testing.T) {
	e := NewEndpointer(SilenceThreshold, SilenceWindow)
	start := time.Now()

	fired := 0
	for i := 0; i <= 10; i++ {
		if e.Observe(10, start.Add(time.Duration(i)*100*time.Millisecond)) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want exactly 1", fired)
	}

	// Continued silence after the trigger must not fire again.
	if e.Observe(10, start.Add(5*time.Second)) {
		t.Error("fired a second time")
	}
}

func TestEndpointer_SpikeResetsTimer(t *testing.T) {
	e := NewEndpointer(SilenceThreshold, SilenceWindow)
	start := time.Now()
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }

	// 900ms of silence, then a brief spike above threshold.
	for ms := 0; ms <= 900; ms += 100 {
		if e.Observe(10, at(ms)) {
			t.Fatalf("fired early at %dms", ms)
		}
	}
	if e.Observe(80, at(1000)) {
		t.Fatal("fired on a loud sample")
	}

	// A fresh full window must elapse before the trigger.
	for ms := 1100; ms < 2100; ms += 100 {
		if e.Observe(10, at(ms)) {
			t.Fatalf("fired at %dms, before a fresh full window", ms)
		}
	}
	if !e.Observe(10, at(2100)) {
		t.Fatal("did not fire after a fresh full window of silence")
	}
}

func TestEndpointer_LoudAudioNeverFires(t *testing.T) {
	e := NewEndpointer(SilenceThreshold, SilenceWindow)
	start := time.Now()
	for i := 0; i < 50; i++ {
		if e.Observe(200, start.Add(time.Duration(i)*100*time.Millisecond)) {
			t.Fatal("fired on loud audio")
		}
	}
}

func TestEndpointer_ResetAllowsNewSession(t *testing.T) {
	e := NewEndpointer(SilenceThreshold, SilenceWindow)
	start := time.Now()
	for i := 0; i <= 10; i++ {
		e.Observe(10, start.Add(time.Duration(i)*100*time.Millisecond))
	}

	e.Reset()
	later := start.Add(time.Minute)
	fired := 0
	for i := 0; i <= 10; i++ {
		if e.Observe(10, later.Add(time.Duration(i)*100*time.Millisecond)) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times after reset, want 1", fired)
	}
}
