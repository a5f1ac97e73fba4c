package api

import (
	"heyhost/feed"
	"heyhost/player"
	"heyhost/store"
	"heyhost/threads"
)

// Message is the WebSocket message structure, shared by both directions.
type Message struct {
	Type string `json:"type"`

	// Requests
	EpisodeID string  `json:"episodeId,omitempty"`
	ClipID    string  `json:"clipId,omitempty"`
	ThreadID  string  `json:"threadId,omitempty"`
	Seconds   float64 `json:"seconds,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Query     string  `json:"query,omitempty"`

	// Responses
	Episodes []feed.Episode    `json:"episodes,omitempty"`
	Clips    []store.SavedClip `json:"clips,omitempty"`
	QAs      []store.SavedQA   `json:"qas,omitempty"`
	Threads  []threads.Thread  `json:"threads,omitempty"`
	Player   *player.State     `json:"player,omitempty"`
	Error    string            `json:"error,omitempty"`

	// Voice session events
	Phase      string `json:"phase,omitempty"`
	Role       string `json:"role,omitempty"`
	Text       string `json:"text,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// TrimRequest is the body of a clip trim call.
type TrimRequest struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}
