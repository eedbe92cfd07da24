package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/karaokestage/KaraokeStage/internal/lrclib"
	"github.com/karaokestage/KaraokeStage/internal/service"
	"github.com/karaokestage/KaraokeStage/internal/storage"
	"github.com/karaokestage/KaraokeStage/internal/vocal"
	"github.com/karaokestage/KaraokeStage/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service *service.KaraokeService
	config  *ServerConfig
	log     *logger.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(svc *service.KaraokeService, config *ServerConfig) *Server {
	return &Server{
		service: svc,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondStorageError maps storage errors onto HTTP status codes.
func (s *Server) respondStorageError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	s.log.Errorf("Storage error: %v", err)
	s.respondError(w, http.StatusInternalServerError, "Database operation failed")
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "KaraokeStage API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"songs":        "GET /api/songs",
			"addSong":      "POST /api/songs",
			"getSong":      "GET /api/songs/{id}",
			"timeline":     "GET /api/songs/{id}/timeline",
			"performances": "GET /api/songs/{id}/performances",
			"lyrics":       "GET /api/lyrics",
			"lyricsSearch": "GET /api/lrclib/search",
			"videoDetails": "POST /api/youtube/video-details",
			"playlists":    "GET /api/playlists",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSong(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	songDTOs := make([]SongDTO, len(songs))
	for i := range songs {
		songDTOs[i] = songDTO(&songs[i])
	}

	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: songDTOs,
		Count: len(songDTOs),
	})
}

// handleAddSong handles POST /api/songs
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req AddSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var song *storage.Song
	var err error
	if req.YouTubeURL != "" {
		s.log.Infof("Importing song from YouTube URL: %s", req.YouTubeURL)
		song, err = s.service.ImportFromYouTube(ctx, req.YouTubeURL)
	} else {
		song, err = s.service.AddSong(&storage.Song{
			VideoID: req.VideoID,
			Title:   req.Title,
			Artist:  req.Artist,
			Genre:   req.Genre,
			Gender:  req.Gender,
			Year:    req.Year,
		})
	}
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.log.Infof("Added song: %s by %s (ID: %s)", song.Title, song.Artist, song.ID)
	s.respondJSON(w, http.StatusCreated, songDTO(song))
}

// handleSongByVideoID handles GET /api/songs/video/{videoId}
func (s *Server) handleSongByVideoID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	videoID := strings.TrimPrefix(r.URL.Path, "/api/songs/video/")
	if videoID == "" {
		s.respondError(w, http.StatusBadRequest, "Video ID required")
		return
	}

	song, err := s.service.GetSongByVideoID(videoID)
	if err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("No song with video ID %s", videoID))
		return
	}

	s.respondJSON(w, http.StatusOK, songDTO(song))
}

// handleSong routes requests to /api/songs/{id} and its sub-resources
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}
	songID := segments[0]

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSong(w, r, songID)
		case http.MethodPatch:
			s.handleUpdateSong(w, r, songID)
		case http.MethodDelete:
			s.handleDeleteSong(w, r, songID)
		default:
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch segments[1] {
	case "play":
		s.handleRegisterPlay(w, r, songID)
	case "lyrics-offset":
		s.handleLyricsOffset(w, r, songID)
	case "lyrics":
		s.handleSongLyrics(w, r, songID)
	case "timeline":
		s.handleSongTimeline(w, r, songID)
	case "performances":
		s.handlePerformances(w, r, songID)
	default:
		s.respondError(w, http.StatusNotFound, "Unknown song resource")
	}
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID string) {
	song, err := s.service.GetSong(songID)
	if err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, songDTO(song))
}

// handleUpdateSong handles PATCH /api/songs/{id}
func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request, songID string) {
	var req UpdateSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := req.Updates()
	if len(updates) == 0 {
		s.respondError(w, http.StatusBadRequest, "No updatable fields provided")
		return
	}

	song, err := s.service.UpdateSong(songID, updates)
	if err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, songDTO(song))
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID string) {
	song, err := s.service.GetSong(songID)
	if err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
		return
	}

	if err := s.service.DeleteSong(songID); err != nil {
		s.log.Errorf("Failed to delete song %s: %v", songID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	s.log.Infof("Deleted song: %s by %s (ID: %s)", song.Title, song.Artist, songID)
	s.respondJSON(w, http.StatusOK, MessageResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

// handleRegisterPlay handles POST /api/songs/{id}/play
func (s *Server) handleRegisterPlay(w http.ResponseWriter, r *http.Request, songID string) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.service.RegisterPlay(songID); err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Play recorded", ID: songID})
}

// handleLyricsOffset handles PATCH /api/songs/{id}/lyrics-offset
func (s *Server) handleLyricsOffset(w http.ResponseWriter, r *http.Request, songID string) {
	if r.Method != http.MethodPatch {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LyricsOffsetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.SaveLyricsOffset(songID, req.Offset); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song %s not found", songID))
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Offset saved", ID: songID})
}

// handleSongLyrics handles GET /api/songs/{id}/lyrics
func (s *Server) handleSongLyrics(w http.ResponseWriter, r *http.Request, songID string) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	song, err := s.service.GetSong(songID)
	if err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, SongLyricsResponse{
		Lines:  song.Lines(),
		Offset: song.LyricsOffset,
	})
}

// handleSongTimeline handles GET /api/songs/{id}/timeline
func (s *Server) handleSongTimeline(w http.ResponseWriter, r *http.Request, songID string) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	timeline, err := s.service.SongTimeline(songID)
	if err != nil {
		s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, timeline)
}

// handlePerformances routes requests to /api/songs/{id}/performances
func (s *Server) handlePerformances(w http.ResponseWriter, r *http.Request, songID string) {
	switch r.Method {
	case http.MethodGet:
		performances, err := s.service.ListPerformances(songID)
		if err != nil {
			s.log.Errorf("Failed to list performances: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to retrieve performances")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"performances": performances,
			"count":        len(performances),
		})
	case http.MethodPost:
		var req PerformanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := s.service.SavePerformance(songID, vocal.Breakdown{
			PitchScore:  req.PitchScore,
			TimingScore: req.TimingScore,
			RhythmScore: req.RhythmScore,
			TotalScore:  req.TotalScore,
		})
		if err != nil {
			s.respondStorageError(w, err, fmt.Sprintf("Song %s not found", songID))
			return
		}
		s.respondJSON(w, http.StatusCreated, p)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleFetchLyrics handles GET /api/lyrics?track=...&artist=...&duration=...
func (s *Server) handleFetchLyrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	track := r.URL.Query().Get("track")
	artist := r.URL.Query().Get("artist")
	if track == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "track and artist query parameters are required")
		return
	}

	var duration float64
	if d := r.URL.Query().Get("duration"); d != "" {
		parsed, err := strconv.ParseFloat(d, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid duration")
			return
		}
		duration = parsed
	}

	lines, err := s.service.FetchLyrics(r.Context(), track, artist, duration)
	if err != nil {
		if errors.Is(err, lrclib.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "No synced lyrics found")
			return
		}
		s.log.Errorf("Lyrics lookup failed: %v", err)
		s.respondError(w, http.StatusBadGateway, "Lyrics provider unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

// handleSearchLyrics handles GET /api/lrclib/search?q=...
func (s *Server) handleSearchLyrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	results, err := s.service.SearchLyrics(r.Context(), query)
	if err != nil {
		s.log.Errorf("Lyrics search failed: %v", err)
		s.respondError(w, http.StatusBadGateway, "Lyrics provider unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleVideoDetails handles POST /api/youtube/video-details
func (s *Server) handleVideoDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	var req VideoDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		s.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	details, err := s.service.VideoDetails(ctx, req.URL)
	if err != nil {
		s.log.Errorf("Video details lookup failed: %v", err)
		s.respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to resolve video: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, details)
}

// handlePlaylists routes requests to /api/playlists
func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playlists, err := s.service.ListPlaylists()
		if err != nil {
			s.log.Errorf("Failed to list playlists: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to retrieve playlists")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"playlists": playlists,
			"count":     len(playlists),
		})
	case http.MethodPost:
		var req PlaylistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		playlist, err := s.service.CreatePlaylist(req.Name, req.Description)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondJSON(w, http.StatusCreated, playlist)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handlePlaylist routes requests to /api/playlists/{id} and its songs
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/playlists/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.respondError(w, http.StatusBadRequest, "Playlist ID required")
		return
	}
	playlistID := segments[0]

	switch {
	case len(segments) == 1:
		s.handlePlaylistByID(w, r, playlistID)
	case len(segments) == 2 && segments[1] == "songs":
		s.handlePlaylistSongs(w, r, playlistID)
	case len(segments) == 3 && segments[1] == "songs":
		if r.Method != http.MethodDelete {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if err := s.service.RemoveSongFromPlaylist(playlistID, segments[2]); err != nil {
			s.respondStorageError(w, err, "Song not in playlist")
			return
		}
		s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Song removed from playlist"})
	default:
		s.respondError(w, http.StatusNotFound, "Unknown playlist resource")
	}
}

// handlePlaylistByID handles GET/PATCH/DELETE /api/playlists/{id}
func (s *Server) handlePlaylistByID(w http.ResponseWriter, r *http.Request, playlistID string) {
	switch r.Method {
	case http.MethodGet:
		playlist, err := s.service.GetPlaylist(playlistID)
		if err != nil {
			s.respondStorageError(w, err, fmt.Sprintf("Playlist %s not found", playlistID))
			return
		}
		s.respondJSON(w, http.StatusOK, playlist)
	case http.MethodPatch:
		var req PlaylistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		playlist, err := s.service.UpdatePlaylist(playlistID, req.Name, req.Description)
		if err != nil {
			s.respondStorageError(w, err, fmt.Sprintf("Playlist %s not found", playlistID))
			return
		}
		s.respondJSON(w, http.StatusOK, playlist)
	case http.MethodDelete:
		if err := s.service.DeletePlaylist(playlistID); err != nil {
			s.log.Errorf("Failed to delete playlist %s: %v", playlistID, err)
			s.respondError(w, http.StatusInternalServerError, "Failed to delete playlist")
			return
		}
		s.respondJSON(w, http.StatusOK, MessageResponse{
			Message: "Playlist deleted successfully",
			ID:      playlistID,
		})
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handlePlaylistSongs handles GET/POST /api/playlists/{id}/songs
func (s *Server) handlePlaylistSongs(w http.ResponseWriter, r *http.Request, playlistID string) {
	switch r.Method {
	case http.MethodGet:
		songs, err := s.service.ListPlaylistSongs(playlistID)
		if err != nil {
			s.log.Errorf("Failed to list playlist songs: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to retrieve playlist songs")
			return
		}
		songDTOs := make([]SongDTO, len(songs))
		for i := range songs {
			songDTOs[i] = songDTO(&songs[i])
		}
		s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: songDTOs, Count: len(songDTOs)})
	case http.MethodPost:
		var req PlaylistAddSongRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.SongID == "" {
			s.respondError(w, http.StatusBadRequest, "song_id is required")
			return
		}
		entry, err := s.service.AddSongToPlaylist(playlistID, req.SongID)
		if err != nil {
			s.respondStorageError(w, err, "Playlist or song not found")
			return
		}
		s.respondJSON(w, http.StatusCreated, entry)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
