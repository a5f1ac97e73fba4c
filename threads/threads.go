// Package threads derives conversation threads from the flat saved Q&A
// list. Grouping is a pure function of the input: threads are recomputed
// on every request and never stored.
package threads

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"heyhost/store"
)

// TimeWindow is the maximum gap between consecutive pairs that still
// belong to the same synthesized thread.
const TimeWindow = 5 * time.Minute

// Message is one side of a question/answer pair, flattened for display.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "question" or "answer"
	Content   string    `json:"content"`
	Timestamp float64   `json:"timestamp,omitempty"`
	SavedAt   time.Time `json:"savedAt"`
}

// Thread is a derived conversation: alternating question/answer messages
// in chronological order under a generated topic label.
type Thread struct {
	ID           string    `json:"id"`
	TopicLabel   string    `json:"topicLabel"`
	EpisodeID    string    `json:"episodeId,omitempty"`
	EpisodeTitle string    `json:"episodeTitle,omitempty"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Group partitions saved pairs into ordered threads. An explicit ThreadID
// always wins; unthreaded pairs group per episode into runs separated by
// gaps longer than TimeWindow. The result is deterministic and idempotent:
// regrouping a produced thread's pairs reproduces the same partition.
func Group(savedQAs []store.SavedQA) []Thread {
	if len(savedQAs) == 0 {
		return nil
	}

	groups := make(map[string][]store.SavedQA)
	var keys []string
	addGroup := func(key string, qas []store.SavedQA) {
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], qas...)
	}

	var unthreaded []store.SavedQA
	for _, qa := range savedQAs {
		if qa.ThreadID != "" {
			addGroup(qa.ThreadID, []store.SavedQA{qa})
		} else {
			unthreaded = append(unthreaded, qa)
		}
	}

	// Bucket unthreaded pairs per episode, then split each bucket into
	// time-proximity runs.
	episodeBuckets := make(map[string][]store.SavedQA)
	var bucketKeys []string
	for _, qa := range unthreaded {
		key := qa.EpisodeID
		if key == "" {
			key = "no-episode"
		}
		if _, seen := episodeBuckets[key]; !seen {
			bucketKeys = append(bucketKeys, key)
		}
		episodeBuckets[key] = append(episodeBuckets[key], qa)
	}

	for _, bucket := range bucketKeys {
		qas := episodeBuckets[bucket]
		sort.SliceStable(qas, func(i, j int) bool {
			return qas[i].SavedAt.Before(qas[j].SavedAt)
		})

		var run []store.SavedQA
		emit := func() {
			if len(run) > 0 {
				addGroup("auto-"+bucket+"-"+run[0].ID, run)
				run = nil
			}
		}
		for i, qa := range qas {
			if i > 0 && qa.SavedAt.Sub(qas[i-1].SavedAt) > TimeWindow {
				emit()
			}
			run = append(run, qa)
		}
		emit()
	}

	threads := make([]Thread, 0, len(keys))
	for _, key := range keys {
		threads = append(threads, buildThread(key, groups[key]))
	}

	// Most recently active first.
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})

	return threads
}

func buildThread(id string, qas []store.SavedQA) Thread {
	sorted := make([]store.SavedQA, len(qas))
	copy(sorted, qas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SavedAt.Before(sorted[j].SavedAt)
	})

	messages := make([]Message, 0, len(sorted)*2)
	questions := make([]string, 0, len(sorted))
	for _, qa := range sorted {
		questions = append(questions, qa.Question)
		messages = append(messages,
			Message{ID: qa.ID + "-q", Type: "question", Content: qa.Question, Timestamp: qa.Timestamp, SavedAt: qa.SavedAt},
			Message{ID: qa.ID + "-a", Type: "answer", Content: qa.Answer, Timestamp: qa.Timestamp, SavedAt: qa.SavedAt},
		)
	}

	first := sorted[0]
	last := sorted[len(sorted)-1]

	return Thread{
		ID:           id,
		TopicLabel:   TopicLabel(questions),
		EpisodeID:    first.EpisodeID,
		EpisodeTitle: first.EpisodeTitle,
		Messages:     messages,
		CreatedAt:    first.SavedAt,
		UpdatedAt:    last.SavedAt,
	}
}

var messageRoleSuffixRe = regexp.MustCompile(`-[qa]$`)

// QAIDs returns the ids of the saved pairs behind a thread's messages.
// Deleting a thread means deleting exactly these records.
func QAIDs(t Thread) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range t.Messages {
		id := messageRoleSuffixRe.ReplaceAllString(m.ID, "")
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what is (?:the |a )?(.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)how (?:do|does|can|to) (.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)why (?:is|are|do|does) (.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)(?:explain|tell me about|describe) (.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)who (?:is|was|are) (.+?)(?:\?|$)`),
}

// TopicLabel derives a short display label from the first question:
// a known question pattern yields the first three words of its subject,
// title-cased; otherwise the first three words of the raw question,
// truncated to 25 characters.
func TopicLabel(questions []string) string {
	if len(questions) == 0 {
		return "Conversation"
	}

	first := strings.ToLower(questions[0])
	for _, pattern := range topicPatterns {
		if m := pattern.FindStringSubmatch(first); m != nil {
			words := strings.Fields(strings.TrimSpace(m[1]))
			if len(words) > 3 {
				words = words[:3]
			}
			for i, w := range words {
				r := []rune(w)
				words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
			}
			return strings.Join(words, " ")
		}
	}

	words := strings.Fields(questions[0])
	if len(words) > 3 {
		words = words[:3]
	}
	label := strings.Join(words, " ")
	if r := []rune(label); len(r) > 25 {
		return string(r[:25]) + "..."
	}
	return label
}
