// Package player owns podcast playback state: the current episode, the
// saved-clip lane, and the command dispatcher that serializes every
// control request into one place.
package player

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"heyhost/feed"
	"heyhost/store"
)

// SkipSeconds is how far skip-forward/skip-backward jump.
const SkipSeconds = 15

// clipWatchInterval is how often the clip lane is checked against its
// end boundary.
const clipWatchInterval = 200 * time.Millisecond

// Command is a playback control request. Commands from the voice layer
// and the API are funneled through one channel so the transition
// behavior stays serialized and testable.
type Command int

const (
	CmdPause Command = iota
	CmdResume
	CmdTogglePlay
	CmdSkipForward
	CmdSkipBackward
)

// Output plays one audio stream. The controller drives two of them: the
// episode lane and the clip lane. Implementations must be safe to Stop
// when idle.
type Output interface {
	// Start begins playback of url at offset seconds, replacing
	// whatever the lane was playing.
	Start(url string, offset float64) error
	Stop()
	SetPaused(paused bool)
	// SetVolume scales output in [0, 1].
	SetVolume(volume float64)
	// Position is the absolute position in the stream's timeline,
	// including the starting offset.
	Position() float64
}

// State is a snapshot of playback for the UI.
type State struct {
	Episode       *feed.Episode `json:"episode"`
	IsPlaying     bool          `json:"isPlaying"`
	Position      float64       `json:"position"`
	Duration      int           `json:"duration"`
	IsPlayingClip bool          `json:"isPlayingClip"`
	CurrentClipID string        `json:"currentClipId,omitempty"`
	Volume        float64       `json:"volume"`
	Muted         bool          `json:"muted"`
	Speed         float64       `json:"speed"`
}

// Controller mediates all playback mutations. The two lanes are mutually
// exclusive: starting one pauses the other.
type Controller struct {
	mu sync.Mutex

	episodeOut Output
	clipOut    Output

	episode   *feed.Episode
	playing   bool
	position  float64 // last known, refreshed from the output lane
	duration  int
	clip   *store.SavedClip
	volume float64
	muted  bool
	speed  float64

	commands chan Command
	onChange func(State)
}

// NewController creates a controller over the two playback lanes.
func NewController(episodeOut, clipOut Output) *Controller {
	return &Controller{
		episodeOut: episodeOut,
		clipOut:    clipOut,
		commands:   make(chan Command, 16),
		volume:     1,
		speed:      1,
	}
}

// SetOnChange registers a snapshot callback fired after every mutation.
func (c *Controller) SetOnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Dispatch queues a command for the dispatcher. Never blocks; a full
// queue drops the command with a warning, a stale skip is better than a
// wedged caller.
func (c *Controller) Dispatch(cmd Command) {
	select {
	case c.commands <- cmd:
	default:
		log.Printf("[Player] Command queue full, dropping %d", cmd)
	}
}

// Run consumes commands and watches the clip lane until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(clipWatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.commands:
			c.apply(cmd)
		case <-ticker.C:
			c.watchClip()
		}
	}
}

func (c *Controller) apply(cmd Command) {
	switch cmd {
	case CmdPause:
		c.Pause()
	case CmdResume:
		c.Resume()
	case CmdTogglePlay:
		c.TogglePlay()
	case CmdSkipForward:
		c.Seek(c.Position() + SkipSeconds)
	case CmdSkipBackward:
		c.Seek(c.Position() - SkipSeconds)
	}
}

// PlayEpisode switches the episode lane to ep and starts it from zero.
// Any playing clip stops.
func (c *Controller) PlayEpisode(ep feed.Episode) {
	c.mu.Lock()
	c.stopClipLocked()
	c.episode = &ep
	c.position = 0
	c.duration = ep.Duration
	err := c.episodeOut.Start(ep.AudioURL, 0)
	c.playing = err == nil
	c.mu.Unlock()

	if err != nil {
		log.Printf("[Player] Failed to start episode %s: %v", ep.ID, err)
	}
	c.notify()
}

// TogglePlay flips the episode lane, stopping any clip first.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	c.stopClipLocked()
	if c.episode == nil {
		c.mu.Unlock()
		return
	}
	c.playing = !c.playing
	c.episodeOut.SetPaused(!c.playing)
	c.mu.Unlock()
	c.notify()
}

// Pause pauses the episode lane if it is playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = false
	c.episodeOut.SetPaused(true)
	c.mu.Unlock()
	c.notify()
}

// Resume resumes the episode lane if it is paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.playing || c.episode == nil {
		c.mu.Unlock()
		return
	}
	c.playing = true
	c.episodeOut.SetPaused(false)
	c.mu.Unlock()
	c.notify()
}

// Seek moves the episode lane, clamped to [0, duration].
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	if c.episode == nil {
		c.mu.Unlock()
		return
	}
	d := float64(c.duration)
	if d == 0 {
		d = float64(c.episode.Duration)
	}
	newTime := math.Max(0, math.Min(t, d))
	c.position = newTime
	err := c.episodeOut.Start(c.episode.AudioURL, newTime)
	if err != nil {
		log.Printf("[Player] Seek failed: %v", err)
	} else {
		c.episodeOut.SetPaused(!c.playing)
	}
	c.mu.Unlock()
	c.notify()
}

// IsPlaying reports whether the episode lane is playing. The voice layer
// uses this to decide if a resume is meaningful.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Current returns the active episode, or nil.
func (c *Controller) Current() *feed.Episode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.episode
}

// Position returns the episode lane position in seconds.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Controller) positionLocked() float64 {
	if c.playing {
		c.position = c.episodeOut.Position()
	}
	return c.position
}

// Duration returns the playing episode's duration in seconds.
func (c *Controller) Duration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetVolume sets output volume, clamped to [0, 1]. Both lanes follow.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = math.Max(0, math.Min(v, 1))
	c.applyVolumeLocked()
	c.mu.Unlock()
	c.notify()
}

// ToggleMute flips mute without losing the volume setting.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	c.muted = !c.muted
	c.applyVolumeLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) applyVolumeLocked() {
	effective := c.volume
	if c.muted {
		effective = 0
	}
	c.episodeOut.SetVolume(effective)
	c.clipOut.SetVolume(effective)
}

// SetSpeed records the playback rate, clamped to [0.5, 2].
func (c *Controller) SetSpeed(speed float64) {
	c.mu.Lock()
	c.speed = math.Max(0.5, math.Min(speed, 2))
	c.mu.Unlock()
	c.notify()
}

// PlayClip plays a saved clip on the clip lane from its start time,
// pausing the episode lane. audioURL is the owning episode's stream.
func (c *Controller) PlayClip(clip store.SavedClip, audioURL string) {
	c.mu.Lock()
	if c.playing {
		c.playing = false
		c.episodeOut.SetPaused(true)
	}
	err := c.clipOut.Start(audioURL, clip.StartTime)
	if err != nil {
		c.mu.Unlock()
		log.Printf("[Player] Failed to play clip %s: %v", clip.ID, err)
		c.notify()
		return
	}
	clipCopy := clip
	c.clip = &clipCopy
	c.mu.Unlock()
	c.notify()
}

// StopClip stops the clip lane.
func (c *Controller) StopClip() {
	c.mu.Lock()
	c.stopClipLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) stopClipLocked() {
	if c.clip == nil {
		return
	}
	c.clipOut.Stop()
	c.clip = nil
}

// watchClip stops the clip lane once it crosses the clip's end boundary.
func (c *Controller) watchClip() {
	c.mu.Lock()
	if c.clip == nil {
		c.mu.Unlock()
		return
	}
	if c.clipOut.Position() >= c.clip.EndTime {
		c.clipOut.Stop()
		c.clip = nil
		c.mu.Unlock()
		c.notify()
		return
	}
	c.mu.Unlock()
}

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Episode:   c.episode,
		IsPlaying: c.playing,
		Position:  c.positionLocked(),
		Duration:  c.duration,
		Volume:    c.volume,
		Muted:     c.muted,
		Speed:     c.speed,
	}
	if c.clip != nil {
		s.IsPlayingClip = true
		s.CurrentClipID = c.clip.ID
	}
	return s
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	var snap State
	if fn != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
