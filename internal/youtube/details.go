// Package youtube resolves video metadata through yt-dlp.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/karaokestage/KaraokeStage/pkg/logger"
	"github.com/karaokestage/KaraokeStage/pkg/utils"
)

// VideoDetails is the metadata needed to register a song.
type VideoDetails struct {
	VideoID   string  `json:"videoId"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
}

type Provider struct {
	log *logger.Logger
}

func NewProvider() *Provider {
	return &Provider{log: logger.GetLogger()}
}

// videoInfo mirrors the fields we need from yt-dlp's single-JSON dump.
type videoInfo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Track     string  `json:"track"`
	Artist    string  `json:"artist"`
	Channel   string  `json:"channel"`
	Uploader  string  `json:"uploader"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
}

// Details fetches metadata for a YouTube URL without downloading media.
func (p *Provider) Details(ctx context.Context, rawURL string) (*VideoDetails, error) {
	if !utils.IsYouTubeURL(rawURL) {
		return nil, fmt.Errorf("not a YouTube URL: %s", rawURL)
	}

	p.log.Debugf("fetching video details for %s", rawURL)

	dl := ytdlp.New().
		NoWarnings().
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON()

	result, err := dl.Run(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	return parseDetails([]byte(result.Stdout))
}

func parseDetails(data []byte) (*VideoDetails, error) {
	var info videoInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp JSON: %w", err)
	}

	if strings.TrimSpace(info.ID) == "" {
		return nil, fmt.Errorf("missing video ID in yt-dlp output")
	}
	if strings.TrimSpace(info.Title) == "" {
		return nil, fmt.Errorf("missing title in yt-dlp output")
	}

	title := info.Title
	if strings.TrimSpace(info.Track) != "" {
		title = info.Track
	}

	return &VideoDetails{
		VideoID:   info.ID,
		Title:     title,
		Artist:    pickArtist(info),
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
	}, nil
}

// pickArtist falls back through the metadata fields yt-dlp may or may not
// populate, best to worst.
func pickArtist(info videoInfo) string {
	if strings.TrimSpace(info.Artist) != "" {
		return info.Artist
	}
	if strings.TrimSpace(info.Channel) != "" {
		return info.Channel
	}
	if strings.TrimSpace(info.Uploader) != "" {
		return info.Uploader
	}
	return "Unknown Artist"
}
