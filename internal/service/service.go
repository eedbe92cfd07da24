// Package service wires storage, lyric providers and video metadata into
// the operations the server and CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/karaokestage/KaraokeStage/internal/lrclib"
	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/internal/storage"
	"github.com/karaokestage/KaraokeStage/internal/vocal"
	"github.com/karaokestage/KaraokeStage/internal/youtube"
	"github.com/karaokestage/KaraokeStage/pkg/logger"
	"github.com/karaokestage/KaraokeStage/pkg/utils"
)

// LyricsProvider resolves synced lyrics from a catalog.
type LyricsProvider interface {
	Get(ctx context.Context, track, artist string, duration float64) ([]lyrics.Line, error)
	Search(ctx context.Context, query string) ([]lrclib.SearchResult, error)
}

// VideoProvider resolves metadata for a video URL.
type VideoProvider interface {
	Details(ctx context.Context, url string) (*youtube.VideoDetails, error)
}

type KaraokeService struct {
	db     *storage.DBClient
	lyrics LyricsProvider
	videos VideoProvider
	log    *logger.Logger
}

type Option func(*KaraokeService) error

func WithDBPath(path string) Option {
	return func(s *KaraokeService) error {
		db, err := storage.NewDBClientWithPath(path)
		if err != nil {
			return err
		}
		s.db = db
		return nil
	}
}

func WithStorage(db *storage.DBClient) Option {
	return func(s *KaraokeService) error {
		s.db = db
		return nil
	}
}

func WithLyricsProvider(p LyricsProvider) Option {
	return func(s *KaraokeService) error {
		s.lyrics = p
		return nil
	}
}

func WithVideoProvider(p VideoProvider) Option {
	return func(s *KaraokeService) error {
		s.videos = p
		return nil
	}
}

func New(opts ...Option) (*KaraokeService, error) {
	s := &KaraokeService{log: logger.GetLogger()}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.db == nil {
		db, err := storage.NewDBClient()
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.db = db
	}
	if s.lyrics == nil {
		s.lyrics = lrclib.NewClient()
	}
	if s.videos == nil {
		s.videos = youtube.NewProvider()
	}

	return s, nil
}

func (s *KaraokeService) Close() error {
	return s.db.Close()
}

// ImportFromYouTube registers a song from a video URL: metadata via yt-dlp,
// synced lyrics via the lyrics provider. A missing lyrics match is not an
// error; the song is stored without lyrics and can be fixed up later.
func (s *KaraokeService) ImportFromYouTube(ctx context.Context, rawURL string) (*storage.Song, error) {
	details, err := s.videos.Details(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("resolving video: %w", err)
	}

	song := &storage.Song{
		VideoID:      details.VideoID,
		Title:        details.Title,
		Artist:       details.Artist,
		ThumbnailURL: details.Thumbnail,
	}

	lines, err := s.lyrics.Get(ctx, details.Title, details.Artist, details.Duration)
	switch {
	case err == nil:
		if err := song.SetLines(lines); err != nil {
			return nil, err
		}
	case errors.Is(err, lrclib.ErrNotFound):
		s.log.Warnf("no synced lyrics for %s - %s, storing without", details.Artist, details.Title)
	default:
		return nil, fmt.Errorf("fetching lyrics: %w", err)
	}

	return s.db.CreateSong(song)
}

// AddSong registers a song directly, from a video ID or URL plus manual
// metadata. Lyrics may be attached later.
func (s *KaraokeService) AddSong(song *storage.Song) (*storage.Song, error) {
	if utils.IsYouTubeURL(song.VideoID) {
		id, err := utils.ExtractYouTubeID(song.VideoID)
		if err != nil {
			return nil, err
		}
		song.VideoID = id
	}
	if strings.TrimSpace(song.VideoID) == "" {
		return nil, errors.New("song needs a video ID")
	}
	return s.db.CreateSong(song)
}

func (s *KaraokeService) GetSong(id string) (*storage.Song, error) {
	return s.db.GetSongByID(id)
}

func (s *KaraokeService) GetSongByVideoID(videoID string) (*storage.Song, error) {
	return s.db.GetSongByVideoID(videoID)
}

func (s *KaraokeService) ListSongs() ([]storage.Song, error) {
	return s.db.ListSongs()
}

func (s *KaraokeService) UpdateSong(id string, updates map[string]any) (*storage.Song, error) {
	return s.db.UpdateSong(id, updates)
}

func (s *KaraokeService) DeleteSong(id string) error {
	return s.db.DeleteSong(id)
}

// RegisterPlay bumps the song's play counter when a session starts.
func (s *KaraokeService) RegisterPlay(id string) error {
	return s.db.IncrementPlayCount(id)
}

func (s *KaraokeService) SaveLyricsOffset(id string, offset float64) error {
	return s.db.SaveLyricsOffset(id, offset)
}

// Timeline is a song's lyric data expanded for display: the synced lines,
// the interpolated per-word times and the stored timing offset.
type Timeline struct {
	Lines  []lyrics.Line `json:"lines"`
	Words  []lyrics.Word `json:"words"`
	Offset float64       `json:"offset"`
}

// SongTimeline builds the word-level timeline for a stored song.
func (s *KaraokeService) SongTimeline(id string) (*Timeline, error) {
	song, err := s.db.GetSongByID(id)
	if err != nil {
		return nil, err
	}
	lines := song.Lines()
	return &Timeline{
		Lines:  lines,
		Words:  lyrics.BuildWordTimeline(lines),
		Offset: song.LyricsOffset,
	}, nil
}

// FetchLyrics looks up synced lyrics without touching storage.
func (s *KaraokeService) FetchLyrics(ctx context.Context, track, artist string, duration float64) ([]lyrics.Line, error) {
	return s.lyrics.Get(ctx, track, artist, duration)
}

func (s *KaraokeService) SearchLyrics(ctx context.Context, query string) ([]lrclib.SearchResult, error) {
	return s.lyrics.Search(ctx, query)
}

func (s *KaraokeService) VideoDetails(ctx context.Context, rawURL string) (*youtube.VideoDetails, error) {
	return s.videos.Details(ctx, rawURL)
}

// SavePerformance records the final score breakdown of a session.
func (s *KaraokeService) SavePerformance(songID string, scores vocal.Breakdown) (*storage.Performance, error) {
	if _, err := s.db.GetSongByID(songID); err != nil {
		return nil, err
	}
	p := &storage.Performance{
		SongID:      songID,
		PitchScore:  scores.PitchScore,
		TimingScore: scores.TimingScore,
		RhythmScore: scores.RhythmScore,
		TotalScore:  scores.TotalScore,
	}
	if err := s.db.CreatePerformance(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *KaraokeService) ListPerformances(songID string) ([]storage.Performance, error) {
	return s.db.ListPerformancesBySong(songID)
}

func (s *KaraokeService) CreatePlaylist(name, description string) (*storage.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("playlist needs a name")
	}
	return s.db.CreatePlaylist(name, description)
}

func (s *KaraokeService) GetPlaylist(id string) (*storage.Playlist, error) {
	return s.db.GetPlaylist(id)
}

func (s *KaraokeService) ListPlaylists() ([]storage.Playlist, error) {
	return s.db.ListPlaylists()
}

func (s *KaraokeService) UpdatePlaylist(id, name, description string) (*storage.Playlist, error) {
	return s.db.UpdatePlaylist(id, name, description)
}

func (s *KaraokeService) DeletePlaylist(id string) error {
	return s.db.DeletePlaylist(id)
}

func (s *KaraokeService) AddSongToPlaylist(playlistID, songID string) (*storage.PlaylistSong, error) {
	return s.db.AddSongToPlaylist(playlistID, songID)
}

func (s *KaraokeService) RemoveSongFromPlaylist(playlistID, songID string) error {
	return s.db.RemoveSongFromPlaylist(playlistID, songID)
}

func (s *KaraokeService) ListPlaylistSongs(playlistID string) ([]storage.Song, error) {
	return s.db.ListPlaylistSongs(playlistID)
}
