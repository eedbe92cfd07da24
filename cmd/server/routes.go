package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/karaokestage/KaraokeStage/pkg/logger"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Root endpoint
	mux.HandleFunc("/", s.handleRoot)

	// Health endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// Song management endpoints
	mux.HandleFunc("/api/songs", s.handleSongs)
	mux.HandleFunc("/api/songs/video/", s.handleSongByVideoID)
	mux.HandleFunc("/api/songs/", s.handleSong)

	// Lyrics catalog endpoints
	mux.HandleFunc("/api/lyrics", s.handleFetchLyrics)
	mux.HandleFunc("/api/lrclib/search", s.handleSearchLyrics)

	// Video metadata endpoint
	mux.HandleFunc("/api/youtube/video-details", s.handleVideoDetails)

	// Playlist endpoints
	mux.HandleFunc("/api/playlists", s.handlePlaylists)
	mux.HandleFunc("/api/playlists/", s.handlePlaylist)

	handler := loggingMiddleware(mux)
	return corsMiddleware(s.config.AllowedOrigins)(handler)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight requests
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		log := logger.GetLogger()
		log.Debugf("%s %s from %s", r.Method, r.URL.Path, getClientIP(r))

		next.ServeHTTP(wrapped, r)

		log.Infof("%s %s -> %d", r.Method, r.URL.Path, wrapped.statusCode)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Start starts the HTTP server
func (s *Server) Start() error {
	handler := s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("🎤 KaraokeStage server starting on %s", addr)
	s.log.Infof("   Database: %s", s.config.DBPath)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("\nEndpoints:")
	s.log.Infof("   GET    /health                              - Health check")
	s.log.Infof("   GET    /api/songs                           - List all songs")
	s.log.Infof("   POST   /api/songs                           - Add song (YouTube URL or manual)")
	s.log.Infof("   GET    /api/songs/{id}                      - Get song by ID")
	s.log.Infof("   PATCH  /api/songs/{id}                      - Update song metadata")
	s.log.Infof("   DELETE /api/songs/{id}                      - Delete song")
	s.log.Infof("   GET    /api/songs/video/{videoId}           - Get song by YouTube video ID")
	s.log.Infof("   POST   /api/songs/{id}/play                 - Record a play")
	s.log.Infof("   PATCH  /api/songs/{id}/lyrics-offset        - Set lyric timing offset")
	s.log.Infof("   GET    /api/songs/{id}/lyrics               - Get synced lyric lines")
	s.log.Infof("   GET    /api/songs/{id}/timeline             - Get word-level lyric timeline")
	s.log.Infof("   GET    /api/songs/{id}/performances         - List scored performances")
	s.log.Infof("   POST   /api/songs/{id}/performances         - Record a performance")
	s.log.Infof("   GET    /api/lyrics                          - Fetch lyrics by track/artist")
	s.log.Infof("   GET    /api/lrclib/search                   - Search the lyrics catalog")
	s.log.Infof("   POST   /api/youtube/video-details           - Resolve video metadata")
	s.log.Infof("   GET    /api/playlists                       - List playlists")
	s.log.Infof("   POST   /api/playlists                       - Create playlist")
	s.log.Infof("   GET    /api/playlists/{id}                  - Get playlist")
	s.log.Infof("   PATCH  /api/playlists/{id}                  - Update playlist")
	s.log.Infof("   DELETE /api/playlists/{id}                  - Delete playlist")
	s.log.Infof("   GET    /api/playlists/{id}/songs            - List playlist songs")
	s.log.Infof("   POST   /api/playlists/{id}/songs            - Add song to playlist")
	s.log.Infof("   DELETE /api/playlists/{id}/songs/{songId}   - Remove song from playlist")

	return http.ListenAndServe(addr, handler)
}
