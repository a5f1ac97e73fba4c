package store

import (
	"errors"
	"testing"

	"heyhost/feed"
)

type fakeTitles struct {
	title string
	err   error
	calls int
}

func (f *fakeTitles) GenerateClipTitle(episodeID string, startTime, endTime int) (string, error) {
	f.calls++
	return f.title, f.err
}

var testEpisode = feed.Episode{
	ID:       "0",
	Title:    "#487 – Irving Finkel: Ancient Mesopotamia",
	Duration: 14304,
}

func TestClips_SaveTrailingWindow(t *testing.T) {
	clips := NewClips(t.TempDir(), &fakeTitles{title: "Decoding Cuneiform Tablets"})

	clip := clips.Save(testEpisode, 100, 0)

	if clip.StartTime != 70 || clip.EndTime != 100 {
		t.Errorf("window = [%v %v], want [70 100]", clip.StartTime, clip.EndTime)
	}
	if clip.Duration != clip.EndTime-clip.StartTime {
		t.Errorf("duration = %v, want %v", clip.Duration, clip.EndTime-clip.StartTime)
	}
	if clip.Title != "Decoding Cuneiform Tablets" {
		t.Errorf("title = %q", clip.Title)
	}
	if clip.EpisodeDuration != 14304 {
		t.Errorf("episode duration = %d, want 14304", clip.EpisodeDuration)
	}
}

func TestClips_SaveNearEpisodeStart(t *testing.T) {
	clips := NewClips(t.TempDir(), nil)

	clip := clips.Save(testEpisode, 10, 0)
	if clip.StartTime != 0 || clip.EndTime != 10 {
		t.Errorf("window = [%v %v], want [0 10]", clip.StartTime, clip.EndTime)
	}
	if clip.Duration != 10 {
		t.Errorf("duration = %v, want 10", clip.Duration)
	}
}

func TestClips_SaveFallbackTitleOnError(t *testing.T) {
	clips := NewClips(t.TempDir(), &fakeTitles{err: errors.New("collaborator down")})

	clip := clips.Save(testEpisode, 100, 0)
	if clip.Title != "Clip at 1:10" {
		t.Errorf("title = %q, want %q", clip.Title, "Clip at 1:10")
	}
}

func TestClips_TrimRecomputesDuration(t *testing.T) {
	clips := NewClips(t.TempDir(), nil)
	clip := clips.Save(testEpisode, 100, 0)

	trimmed, ok := clips.Trim(clip.ID, 80, 95)
	if !ok {
		t.Fatal("Trim returned false")
	}
	if trimmed.StartTime != 80 || trimmed.EndTime != 95 {
		t.Errorf("window = [%v %v], want [80 95]", trimmed.StartTime, trimmed.EndTime)
	}
	if trimmed.Duration != 15 {
		t.Errorf("duration = %v, want 15", trimmed.Duration)
	}
}

func TestClips_TrimRegeneratesFallbackTitle(t *testing.T) {
	clips := NewClips(t.TempDir(), nil)
	clip := clips.Save(testEpisode, 100, 0)
	if clip.Title != "Clip at 1:10" {
		t.Fatalf("precondition: title = %q", clip.Title)
	}

	trimmed, _ := clips.Trim(clip.ID, 125, 140)
	if trimmed.Title != "Clip at 2:05" {
		t.Errorf("title = %q, want %q", trimmed.Title, "Clip at 2:05")
	}
}

func TestClips_TrimPreservesGeneratedTitle(t *testing.T) {
	clips := NewClips(t.TempDir(), &fakeTitles{title: "Decoding Cuneiform Tablets"})
	clip := clips.Save(testEpisode, 100, 0)

	trimmed, _ := clips.Trim(clip.ID, 80, 95)
	if trimmed.Title != "Decoding Cuneiform Tablets" {
		t.Errorf("title = %q, want the generated title preserved", trimmed.Title)
	}
}

func TestHasGeneratedTitle(t *testing.T) {
	if HasGeneratedTitle("Clip at 1:10") {
		t.Error("fallback title reported as generated")
	}
	if !HasGeneratedTitle("Decoding Cuneiform Tablets") {
		t.Error("generated title reported as fallback")
	}
}

func TestQAs_SearchAndDelete(t *testing.T) {
	qas := NewQAs(t.TempDir())
	ep := testEpisode
	qas.Save("What is cuneiform?", "A writing system.", &ep, 42)
	qas.Save("Totally unrelated?", "Yes.", nil, 0)

	if got := qas.Search("cuneiform"); len(got) != 1 {
		t.Errorf("Search(cuneiform) = %d results, want 1", len(got))
	}
	if got := qas.Search("irving finkel"); len(got) != 1 {
		t.Errorf("Search by episode title = %d results, want 1", len(got))
	}
	if got := qas.Search(""); len(got) != 2 {
		t.Errorf("Search(empty) = %d results, want 2", len(got))
	}

	all := qas.All()
	if deleted := qas.DeleteMany([]string{all[0].ID, all[1].ID, "ghost"}); deleted != 2 {
		t.Errorf("DeleteMany deleted %d, want 2", deleted)
	}
	if qas.All() != nil && len(qas.All()) != 0 {
		t.Errorf("store not empty after delete")
	}
}
