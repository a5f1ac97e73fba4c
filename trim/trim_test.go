package trim

import "testing"

func TestEditor_Viewport(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)

	vp := e.Viewport()
	if vp.Start != 70 || vp.End != 160 {
		t.Errorf("viewport = [%v %v], want [70 160]", vp.Start, vp.End)
	}
}

func TestEditor_ViewportClampedToTimeline(t *testing.T) {
	e := NewEditor(120, 10, 110, nil)

	vp := e.Viewport()
	if vp.Start != 0 || vp.End != 120 {
		t.Errorf("viewport = [%v %v], want [0 120]", vp.Start, vp.End)
	}
}

func TestEditor_StartHandleClampsAgainstEnd(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)

	e.BeginDrag(HandleStart)
	e.MoveTo(129.7) // past end-1 after rounding
	if e.Start() != 129 {
		t.Errorf("start = %v, want 129", e.Start())
	}
	e.MoveTo(500)
	if e.Start() != 129 {
		t.Errorf("start = %v, want clamped to end-1 = 129", e.Start())
	}
	e.MoveTo(-50)
	if e.Start() != 0 {
		t.Errorf("start = %v, want 0", e.Start())
	}
}

func TestEditor_EndHandleClampsAgainstStart(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)

	e.BeginDrag(HandleEnd)
	e.MoveTo(50)
	if e.End() != 101 {
		t.Errorf("end = %v, want clamped to start+1 = 101", e.End())
	}
	e.MoveTo(99999)
	if e.End() != 5400 {
		t.Errorf("end = %v, want total = 5400", e.End())
	}
}

func TestEditor_RoundsToWholeSeconds(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)

	e.BeginDrag(HandleStart)
	e.MoveTo(104.4)
	if e.Start() != 104 {
		t.Errorf("start = %v, want 104", e.Start())
	}
	e.MoveTo(104.6)
	if e.Start() != 105 {
		t.Errorf("start = %v, want 105", e.Start())
	}
}

func TestEditor_CommitOnlyOnRelease(t *testing.T) {
	var commits int
	var gotStart, gotEnd float64
	e := NewEditor(5400, 100, 130, func(s, en float64) {
		commits++
		gotStart, gotEnd = s, en
	})

	e.BeginDrag(HandleStart)
	e.MoveTo(95)
	e.MoveTo(90)
	if commits != 0 {
		t.Fatalf("commit fired %d times during drag, want 0", commits)
	}

	e.Release()
	if commits != 1 {
		t.Fatalf("commit fired %d times after release, want 1", commits)
	}
	if gotStart != 90 || gotEnd != 130 {
		t.Errorf("committed [%v %v], want [90 130]", gotStart, gotEnd)
	}

	// Release without a drag must not commit again.
	e.Release()
	if commits != 1 {
		t.Errorf("commit fired %d times, want still 1", commits)
	}
}

func TestEditor_ViewportFrozenDuringDrag(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)
	before := e.Viewport()

	e.BeginDrag(HandleEnd)
	e.MoveTo(200)
	if e.Viewport() != before {
		t.Errorf("viewport moved mid-drag: %+v, want %+v", e.Viewport(), before)
	}

	// External prop changes mid-drag are ignored entirely.
	e.SetRange(5400, 10, 20)
	if e.Viewport() != before {
		t.Errorf("viewport changed from external update mid-drag")
	}
	if e.Start() != 100 {
		t.Errorf("start changed from external update mid-drag: %v", e.Start())
	}

	e.Release()
	after := e.Viewport()
	if after == before {
		t.Errorf("viewport should recenter after release")
	}
}

func TestEditor_SetRangeWhileIdleSnaps(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)
	e.SetRange(5400, 200, 260)

	if e.Start() != 200 || e.End() != 260 {
		t.Errorf("range = [%v %v], want [200 260]", e.Start(), e.End())
	}
	vp := e.Viewport()
	if vp.Start != 170 || vp.End != 290 {
		t.Errorf("viewport = [%v %v], want [170 290]", vp.Start, vp.End)
	}
}

func TestEditor_PositionToTime(t *testing.T) {
	e := NewEditor(5400, 100, 130, nil)
	// Viewport is [70, 160], duration 90.

	if got := e.PositionToTime(0); got != 70 {
		t.Errorf("PositionToTime(0) = %v, want 70", got)
	}
	if got := e.PositionToTime(1); got != 160 {
		t.Errorf("PositionToTime(1) = %v, want 160", got)
	}
	if got := e.PositionToTime(0.5); got != 115 {
		t.Errorf("PositionToTime(0.5) = %v, want 115", got)
	}
	if got := e.PositionToTime(-2); got != 70 {
		t.Errorf("PositionToTime(-2) = %v, want clamped 70", got)
	}
}
