package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/karaokestage/KaraokeStage/internal/lrclib"
	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/internal/storage"
	"github.com/karaokestage/KaraokeStage/internal/vocal"
	"github.com/karaokestage/KaraokeStage/internal/youtube"
)

type fakeLyricsProvider struct {
	lines []lyrics.Line
	err   error
}

func (f *fakeLyricsProvider) Get(ctx context.Context, track, artist string, duration float64) ([]lyrics.Line, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lines, nil
}

func (f *fakeLyricsProvider) Search(ctx context.Context, query string) ([]lrclib.SearchResult, error) {
	return []lrclib.SearchResult{{ID: 1, TrackName: query}}, nil
}

type fakeVideoProvider struct {
	details *youtube.VideoDetails
	err     error
}

func (f *fakeVideoProvider) Details(ctx context.Context, url string) (*youtube.VideoDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func newTestService(t *testing.T, lp LyricsProvider, vp VideoProvider) *KaraokeService {
	t.Helper()

	if lp == nil {
		lp = &fakeLyricsProvider{}
	}
	if vp == nil {
		vp = &fakeVideoProvider{details: &youtube.VideoDetails{
			VideoID: "test-vid", Title: "Test Song", Artist: "Test Artist", Duration: 180,
		}}
	}

	svc, err := New(
		WithDBPath(filepath.Join(t.TempDir(), "service_test.sqlite3")),
		WithLyricsProvider(lp),
		WithVideoProvider(vp),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})
	return svc
}

func TestImportFromYouTube(t *testing.T) {
	lp := &fakeLyricsProvider{lines: []lyrics.Line{
		{Time: 10, Text: "first"},
		{Time: 15, Text: "second"},
	}}
	svc := newTestService(t, lp, nil)

	song, err := svc.ImportFromYouTube(context.Background(), "https://youtu.be/test-vid")
	if err != nil {
		t.Fatalf("ImportFromYouTube failed: %v", err)
	}

	if song.VideoID != "test-vid" || song.Title != "Test Song" {
		t.Errorf("Unexpected song: %+v", song)
	}
	if lines := song.Lines(); len(lines) != 2 || lines[0].Text != "first" {
		t.Errorf("Expected imported lyrics, got %+v", lines)
	}
}

func TestImportFromYouTubeNoLyrics(t *testing.T) {
	lp := &fakeLyricsProvider{err: lrclib.ErrNotFound}
	svc := newTestService(t, lp, nil)

	song, err := svc.ImportFromYouTube(context.Background(), "https://youtu.be/test-vid")
	if err != nil {
		t.Fatalf("Import without lyrics should succeed: %v", err)
	}
	if lines := song.Lines(); len(lines) != 0 {
		t.Errorf("Expected no lyrics, got %+v", lines)
	}
}

func TestImportFromYouTubeLyricsProviderDown(t *testing.T) {
	lp := &fakeLyricsProvider{err: errors.New("provider unreachable")}
	svc := newTestService(t, lp, nil)

	if _, err := svc.ImportFromYouTube(context.Background(), "https://youtu.be/test-vid"); err == nil {
		t.Error("Expected error when lyrics provider fails hard")
	}
}

func TestImportFromYouTubeVideoError(t *testing.T) {
	vp := &fakeVideoProvider{err: errors.New("video unavailable")}
	svc := newTestService(t, nil, vp)

	if _, err := svc.ImportFromYouTube(context.Background(), "https://youtu.be/gone"); err == nil {
		t.Error("Expected error when video lookup fails")
	}
}

func TestAddSongNormalizesURL(t *testing.T) {
	svc := newTestService(t, nil, nil)

	song, err := svc.AddSong(&storage.Song{
		VideoID: "https://www.youtube.com/watch?v=abc123xyz00",
		Title:   "Manual Entry",
		Artist:  "Someone",
	})
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if song.VideoID != "abc123xyz00" {
		t.Errorf("Expected extracted video ID, got %q", song.VideoID)
	}

	if _, err := svc.AddSong(&storage.Song{Title: "No ID"}); err == nil {
		t.Error("Expected error for song without a video ID")
	}
}

func TestSongTimeline(t *testing.T) {
	svc := newTestService(t, nil, nil)

	song := &storage.Song{VideoID: "vid-timeline", Title: "T", Artist: "A", LyricsOffset: 1.5}
	if err := song.SetLines([]lyrics.Line{
		{Time: 10, Text: "one two"},
		{Time: 20, Text: "three"},
	}); err != nil {
		t.Fatalf("SetLines failed: %v", err)
	}
	created, err := svc.AddSong(song)
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	timeline, err := svc.SongTimeline(created.ID)
	if err != nil {
		t.Fatalf("SongTimeline failed: %v", err)
	}
	if len(timeline.Lines) != 2 {
		t.Errorf("Expected 2 lines, got %d", len(timeline.Lines))
	}
	if len(timeline.Words) != 3 {
		t.Errorf("Expected 3 words, got %d", len(timeline.Words))
	}
	if timeline.Offset != 1.5 {
		t.Errorf("Expected offset 1.5, got %f", timeline.Offset)
	}

	if _, err := svc.SongTimeline("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSavePerformance(t *testing.T) {
	svc := newTestService(t, nil, nil)

	created, err := svc.AddSong(&storage.Song{VideoID: "vid-score", Title: "T", Artist: "A"})
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	p, err := svc.SavePerformance(created.ID, vocal.Breakdown{
		PitchScore: 80, TimingScore: 85, RhythmScore: 82, TotalScore: 82,
	})
	if err != nil {
		t.Fatalf("SavePerformance failed: %v", err)
	}
	if p.ID == "" || p.TotalScore != 82 {
		t.Errorf("Unexpected performance: %+v", p)
	}

	performances, err := svc.ListPerformances(created.ID)
	if err != nil {
		t.Fatalf("ListPerformances failed: %v", err)
	}
	if len(performances) != 1 {
		t.Errorf("Expected 1 performance, got %d", len(performances))
	}

	if _, err := svc.SavePerformance("missing", vocal.Breakdown{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown song, got %v", err)
	}
}

func TestCreatePlaylistValidation(t *testing.T) {
	svc := newTestService(t, nil, nil)

	if _, err := svc.CreatePlaylist("  ", ""); err == nil {
		t.Error("Expected error for blank playlist name")
	}
	if _, err := svc.CreatePlaylist("Party", "saturday"); err != nil {
		t.Errorf("CreatePlaylist failed: %v", err)
	}
}
