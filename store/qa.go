package store

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"heyhost/feed"
)

// QAs owns the saved question/answer collection.
type QAs struct {
	col *Collection[SavedQA]
}

// NewQAs opens the Q&A collection under dataDir.
func NewQAs(dataDir string) *QAs {
	return &QAs{col: NewCollection[SavedQA](collectionPath(dataDir, "qa"))}
}

// Save records one completed dialogue turn as an atomic question/answer
// pair. ep may be nil when no episode was active.
func (s *QAs) Save(question, answer string, ep *feed.Episode, position float64) SavedQA {
	qa := SavedQA{
		ID:        uuid.New().String(),
		Question:  question,
		Answer:    answer,
		Timestamp: position,
		SavedAt:   time.Now(),
	}
	if ep != nil {
		qa.EpisodeID = ep.ID
		qa.EpisodeTitle = ep.Title
	}

	s.col.Create(qa)
	log.Printf("[QAs] Saved Q&A %s", qa.ID[:8])
	return qa
}

// Delete removes one pair.
func (s *QAs) Delete(id string) bool {
	return s.col.Delete(id)
}

// DeleteMany removes every listed pair and returns how many were found.
func (s *QAs) DeleteMany(ids []string) int {
	deleted := 0
	for _, id := range ids {
		if s.col.Delete(id) {
			deleted++
		}
	}
	return deleted
}

// Search returns the pairs whose question, answer or episode title
// contains the query, case-insensitively. An empty query returns all.
func (s *QAs) Search(query string) []SavedQA {
	all := s.col.All()
	if query == "" {
		return all
	}

	q := strings.ToLower(query)
	matched := make([]SavedQA, 0, len(all))
	for _, qa := range all {
		if strings.Contains(strings.ToLower(qa.Question), q) ||
			strings.Contains(strings.ToLower(qa.Answer), q) ||
			strings.Contains(strings.ToLower(qa.EpisodeTitle), q) {
			matched = append(matched, qa)
		}
	}
	return matched
}

// All returns every saved pair, newest first.
func (s *QAs) All() []SavedQA {
	return s.col.All()
}
