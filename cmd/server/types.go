package main

import (
	"fmt"

	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/internal/storage"
)

// AddSongRequest is the request body for POST /api/songs. Either a YouTube
// URL (metadata and lyrics resolved automatically) or a video ID with
// manual metadata.
type AddSongRequest struct {
	YouTubeURL string `json:"youtube_url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Genre      string `json:"genre,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// Validate checks if the request is valid
func (r *AddSongRequest) Validate() error {
	if r.YouTubeURL == "" && r.VideoID == "" {
		return fmt.Errorf("youtube_url or video_id is required")
	}
	if r.YouTubeURL == "" && (r.Title == "" || r.Artist == "") {
		return fmt.Errorf("title and artist are required when adding by video_id")
	}
	return nil
}

// UpdateSongRequest is the request body for PATCH /api/songs/{id}. Nil
// fields are left untouched.
type UpdateSongRequest struct {
	Title  *string `json:"title,omitempty"`
	Artist *string `json:"artist,omitempty"`
	Genre  *string `json:"genre,omitempty"`
	Gender *string `json:"gender,omitempty"`
	Year   *int    `json:"year,omitempty"`
}

// Updates converts the request into storage column updates.
func (r *UpdateSongRequest) Updates() map[string]any {
	updates := map[string]any{}
	if r.Title != nil {
		updates["title"] = *r.Title
	}
	if r.Artist != nil {
		updates["artist"] = *r.Artist
	}
	if r.Genre != nil {
		updates["genre"] = *r.Genre
	}
	if r.Gender != nil {
		updates["gender"] = *r.Gender
	}
	if r.Year != nil {
		updates["year"] = *r.Year
	}
	return updates
}

// LyricsOffsetRequest is the request body for PATCH /api/songs/{id}/lyrics-offset
type LyricsOffsetRequest struct {
	Offset float64 `json:"offset"`
}

// PerformanceRequest is the request body for POST /api/songs/{id}/performances
type PerformanceRequest struct {
	PitchScore  int `json:"pitch_score"`
	TimingScore int `json:"timing_score"`
	RhythmScore int `json:"rhythm_score"`
	TotalScore  int `json:"total_score"`
}

// Validate checks if the request is valid
func (r *PerformanceRequest) Validate() error {
	for _, score := range []int{r.PitchScore, r.TimingScore, r.RhythmScore, r.TotalScore} {
		if score < 0 || score > 100 {
			return fmt.Errorf("scores must be within [0, 100]")
		}
	}
	return nil
}

// PlaylistRequest is the request body for POST /api/playlists and
// PATCH /api/playlists/{id}
type PlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PlaylistAddSongRequest is the request body for POST /api/playlists/{id}/songs
type PlaylistAddSongRequest struct {
	SongID string `json:"song_id"`
}

// VideoDetailsRequest is the request body for POST /api/youtube/video-details
type VideoDetailsRequest struct {
	URL string `json:"url"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID           string  `json:"id"`
	VideoID      string  `json:"video_id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Genre        string  `json:"genre,omitempty"`
	Gender       string  `json:"gender,omitempty"`
	Year         int     `json:"year,omitempty"`
	PlayCount    int     `json:"play_count"`
	LyricsOffset float64 `json:"lyrics_offset"`
	HasLyrics    bool    `json:"has_lyrics"`
}

func songDTO(song *storage.Song) SongDTO {
	return SongDTO{
		ID:           song.ID,
		VideoID:      song.VideoID,
		Title:        song.Title,
		Artist:       song.Artist,
		ThumbnailURL: song.ThumbnailURL,
		Genre:        song.Genre,
		Gender:       song.Gender,
		Year:         song.Year,
		PlayCount:    song.PlayCount,
		LyricsOffset: song.LyricsOffset,
		HasLyrics:    len(song.Lines()) > 0,
	}
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// SongLyricsResponse is the response for GET /api/songs/{id}/lyrics
type SongLyricsResponse struct {
	Lines  []lyrics.Line `json:"lines"`
	Offset float64       `json:"offset"`
}

// MessageResponse is a generic acknowledgement with the affected ID.
type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
