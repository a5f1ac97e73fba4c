package store

import (
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"heyhost/feed"
)

// ClipWindowSeconds is how much trailing audio a voice-triggered save keeps.
const ClipWindowSeconds = 30

const fallbackTitlePrefix = "Clip at "

// TitleGenerator produces a short AI title for a clip. Failure is fine;
// the caller falls back to a templated title.
type TitleGenerator interface {
	GenerateClipTitle(episodeID string, startTime, endTime int) (string, error)
}

// Clips owns the saved-clip collection.
type Clips struct {
	col    *Collection[SavedClip]
	titles TitleGenerator
}

// NewClips opens the clip collection under dataDir. titles may be nil,
// in which case every clip gets a fallback title.
func NewClips(dataDir string, titles TitleGenerator) *Clips {
	return &Clips{
		col:    NewCollection[SavedClip](collectionPath(dataDir, "clips")),
		titles: titles,
	}
}

// FallbackTitle is the templated title used when AI title generation is
// unavailable.
func FallbackTitle(startTime float64) string {
	return fallbackTitlePrefix + feed.FormatTimestamp(int(startTime))
}

// HasGeneratedTitle reports whether a clip carries an AI title rather than
// the fallback template. Detection is by prefix match, same as trimming.
func HasGeneratedTitle(title string) bool {
	return !strings.HasPrefix(title, fallbackTitlePrefix)
}

// Save captures the trailing clip window ending at position into a new
// clip for the episode. The title comes from the title collaborator when
// it answers, otherwise the fallback template.
func (s *Clips) Save(ep feed.Episode, position float64, episodeDuration int) SavedClip {
	endTime := position
	startTime := math.Max(0, endTime-ClipWindowSeconds)

	title := FallbackTitle(startTime)
	if s.titles != nil {
		number := feed.EpisodeNumber(ep.Title)
		generated, err := s.titles.GenerateClipTitle(number, int(startTime), int(endTime))
		if err != nil {
			log.Printf("[Clips] Title generation failed, using fallback: %v", err)
		} else if generated != "" {
			title = generated
		}
	}

	if episodeDuration == 0 {
		episodeDuration = ep.Duration
	}

	clip := SavedClip{
		ID:              uuid.New().String(),
		EpisodeID:       ep.ID,
		EpisodeTitle:    ep.Title,
		EpisodeDuration: episodeDuration,
		Title:           title,
		StartTime:       startTime,
		EndTime:         endTime,
		Duration:        endTime - startTime,
		SavedAt:         time.Now(),
	}

	s.col.Create(clip)
	log.Printf("[Clips] Saved %q [%s - %s]", clip.Title,
		feed.FormatTimestamp(int(startTime)), feed.FormatTimestamp(int(endTime)))
	return clip
}

// Trim moves a clip's boundaries. Duration is recomputed, and a fallback
// title is regenerated from the new start; AI titles are left alone.
func (s *Clips) Trim(id string, newStart, newEnd float64) (SavedClip, bool) {
	return s.col.Update(id, func(clip SavedClip) SavedClip {
		clip.StartTime = newStart
		clip.EndTime = newEnd
		clip.Duration = newEnd - newStart
		if !HasGeneratedTitle(clip.Title) {
			clip.Title = FallbackTitle(newStart)
		}
		return clip
	})
}

// Delete removes a clip.
func (s *Clips) Delete(id string) bool {
	return s.col.Delete(id)
}

// Get returns one clip by id.
func (s *Clips) Get(id string) (SavedClip, bool) {
	return s.col.Get(id)
}

// All returns every saved clip, newest first.
func (s *Clips) All() []SavedClip {
	return s.col.All()
}
