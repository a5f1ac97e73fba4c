package store

import "time"

// SavedClip is a saved slice of an episode. Start/end are in seconds from
// the episode start; Duration is always EndTime-StartTime and is recomputed
// on every trim.
type SavedClip struct {
	ID              string    `json:"id"`
	EpisodeID       string    `json:"episodeId"`
	EpisodeTitle    string    `json:"episodeTitle"`
	EpisodeDuration int       `json:"episodeDuration"`
	Title           string    `json:"title"`
	StartTime       float64   `json:"startTime"`
	EndTime         float64   `json:"endTime"`
	Duration        float64   `json:"duration"`
	SavedAt         time.Time `json:"savedAt"`
}

func (c SavedClip) RecordID() string { return c.ID }

// SavedQA is one question/answer pair captured from a voice dialogue turn.
// Records are immutable after creation; they are only ever deleted.
type SavedQA struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	EpisodeID    string    `json:"episodeId,omitempty"`
	EpisodeTitle string    `json:"episodeTitle,omitempty"`
	Timestamp    float64   `json:"timestamp,omitempty"`
	SavedAt      time.Time `json:"savedAt"`
	// ThreadID groups related pairs into one conversation thread.
	ThreadID string `json:"threadId,omitempty"`
}

func (q SavedQA) RecordID() string { return q.ID }
