// Package feed fetches the podcast RSS feed and maps it to Episodes.
package feed

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/mmcdole/gofeed"
)

// MaxEpisodes limits how many feed items become episodes.
const MaxEpisodes = 20

// Episode is one playable feed item. Episodes are immutable once fetched
// and replaced wholesale on every refresh.
type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Guest       string `json:"guest"`
	Description string `json:"description"`
	Duration    int    `json:"duration"` // seconds
	PublishedAt string `json:"publishedAt"`
	AudioURL    string `json:"audioUrl"`
}

// Fetcher fetches and parses a podcast feed.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher() *Fetcher {
	return &Fetcher{parser: gofeed.NewParser()}
}

// Fetch downloads the feed and converts its items to episodes.
// Duration resolution order: itunes:duration, then the last outline
// timestamp in the description, then 0.
func (f *Fetcher) Fetch(feedURL string) ([]Episode, error) {
	parsed, err := f.parser.ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if parsed == nil || len(parsed.Items) == 0 {
		return nil, fmt.Errorf("feed contains no items")
	}

	items := parsed.Items
	if len(items) > MaxEpisodes {
		items = items[:MaxEpisodes]
	}

	episodes := make([]Episode, 0, len(items))
	for i, item := range items {
		ep := Episode{
			ID:          strconv.Itoa(i),
			Title:       item.Title,
			Description: item.Description,
			PublishedAt: item.Published,
		}
		if ep.Title == "" {
			ep.Title = "Untitled"
		}

		if item.ITunesExt != nil {
			ep.Duration = ParseDuration(item.ITunesExt.Duration)
			ep.Guest = item.ITunesExt.Author
		}
		if ep.Duration == 0 {
			ep.Duration = ExtractOutlineDuration(item.Description)
		}

		for _, enc := range item.Enclosures {
			if enc.URL != "" {
				ep.AudioURL = enc.URL
				break
			}
		}

		episodes = append(episodes, ep)
	}

	return episodes, nil
}

var (
	episodeNumberRe    = regexp.MustCompile(`#(\d+)`)
	episodeNumberEndRe = regexp.MustCompile(`(?i)Podcast #(\d+)`)
)

// EpisodeNumber extracts the numeric episode tag from a title,
// e.g. "#487 – Irving Finkel" yields "487". The title itself is the
// fallback when no tag is present.
func EpisodeNumber(title string) string {
	if m := episodeNumberRe.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	if m := episodeNumberEndRe.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return title
}
