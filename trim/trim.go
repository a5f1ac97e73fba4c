// Package trim implements the clip trim editor: drag-based adjustment of
// a [start, end] range inside an episode, viewed through a zoomed
// viewport. Pure state, no I/O; the UI feeds it pointer events and it
// fires one commit per released drag.
package trim

import "math"

const (
	// MinClipSeconds is the smallest allowed gap between the handles.
	MinClipSeconds = 1
	// ContextPadding is how much timeline is shown either side of the
	// clip in the zoomed viewport.
	ContextPadding = 30
)

// Handle identifies which end of the range is being dragged.
type Handle int

const (
	HandleNone Handle = iota
	HandleStart
	HandleEnd
)

// Viewport is the visible slice of the timeline.
type Viewport struct {
	Start float64
	End   float64
}

func (v Viewport) Duration() float64 { return v.End - v.Start }

// Editor adjusts a clip range with draggable endpoint handles.
// The commit callback fires only on Release, never on intermediate
// moves, so the owning store is written at most once per gesture.
type Editor struct {
	total    float64
	start    float64
	end      float64
	dragging Handle
	viewport Viewport
	commit   func(newStart, newEnd float64)
}

// NewEditor creates an editor over a clip range within totalDuration.
func NewEditor(totalDuration, start, end float64, commit func(newStart, newEnd float64)) *Editor {
	e := &Editor{
		total:  totalDuration,
		start:  start,
		end:    end,
		commit: commit,
	}
	e.resetViewport()
	return e
}

func (e *Editor) resetViewport() {
	e.viewport = Viewport{
		Start: math.Max(0, e.start-ContextPadding),
		End:   math.Min(e.total, e.end+ContextPadding),
	}
}

// Start returns the current (possibly in-drag) start value.
func (e *Editor) Start() float64 { return e.start }

// End returns the current (possibly in-drag) end value.
func (e *Editor) End() float64 { return e.end }

// Dragging reports which handle is currently held.
func (e *Editor) Dragging() Handle { return e.dragging }

// Viewport returns the visible timeline window. It is frozen while a drag
// is in progress so the handles don't jump under the pointer.
func (e *Editor) Viewport() Viewport { return e.viewport }

// SetRange syncs the editor to externally changed clip bounds. Ignored
// mid-drag: drag state must not leak across unrelated updates.
func (e *Editor) SetRange(totalDuration, start, end float64) {
	if e.dragging != HandleNone {
		return
	}
	e.total = totalDuration
	e.start = start
	e.end = end
	e.resetViewport()
}

// BeginDrag grabs a handle.
func (e *Editor) BeginDrag(h Handle) {
	if h == HandleNone {
		return
	}
	e.dragging = h
}

// MoveTo drags the held handle to an absolute time. The value is rounded
// to whole seconds and clamped so start stays in [0, end-MinClipSeconds]
// and end stays in [start+MinClipSeconds, total].
func (e *Editor) MoveTo(seconds float64) {
	t := math.Round(seconds)
	switch e.dragging {
	case HandleStart:
		e.start = math.Max(0, math.Min(e.end-MinClipSeconds, t))
	case HandleEnd:
		e.end = math.Max(e.start+MinClipSeconds, math.Min(e.total, t))
	}
}

// PositionToTime maps a fractional position (0..1) across the viewport to
// a time, for translating pointer coordinates.
func (e *Editor) PositionToTime(fraction float64) float64 {
	f := math.Max(0, math.Min(1, fraction))
	return e.viewport.Start + f*e.viewport.Duration()
}

// Release ends the drag. The commit callback fires exactly once with the
// final range, and the viewport recenters on it.
func (e *Editor) Release() {
	if e.dragging == HandleNone {
		return
	}
	e.dragging = HandleNone
	if e.commit != nil {
		e.commit(e.start, e.end)
	}
	e.resetViewport()
}
