// Package lrclib talks to the LRCLIB synced-lyrics API.
// API docs: https://lrclib.net/docs
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/pkg/logger"
)

const DefaultBaseURL = "https://lrclib.net"

const userAgent = "KaraokeStage/1.0"

// ErrNotFound means LRCLIB has no synced lyrics for the request. Plain
// (unsynced) lyrics count as not found: they cannot drive highlighting.
var ErrNotFound = errors.New("no synced lyrics found")

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lrclibRecord is the wire shape of both the get and search endpoints.
type lrclibRecord struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// SearchResult is one catalog hit with synced lyrics available.
type SearchResult struct {
	ID         int64   `json:"id"`
	TrackName  string  `json:"trackName"`
	ArtistName string  `json:"artistName"`
	AlbumName  string  `json:"albumName"`
	Duration   float64 `json:"duration"`
}

// Get fetches synced lyrics for a track/artist pair, optionally narrowed by
// duration (seconds, 0 to skip). The provider returns lines sorted ascending
// by time.
func (c *Client) Get(ctx context.Context, track, artist string, duration float64) ([]lyrics.Line, error) {
	params := url.Values{}
	params.Set("track_name", track)
	params.Set("artist_name", artist)
	if duration > 0 {
		params.Set("duration", strconv.Itoa(int(duration)))
	}

	var record lrclibRecord
	if err := c.getJSON(ctx, "/api/get?"+params.Encode(), &record); err != nil {
		return nil, err
	}

	if record.SyncedLyrics == "" {
		c.log.Debugf("only plain lyrics available for %s - %s", artist, track)
		return nil, ErrNotFound
	}

	lines := lyrics.ParseLRC(record.SyncedLyrics)
	if len(lines) == 0 {
		return nil, ErrNotFound
	}
	return lines, nil
}

// Search queries the LRCLIB catalog and returns only tracks that have synced
// lyrics. Single-word queries get a ranking pass that prefers exact and
// short title matches.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)

	var records []lrclibRecord
	if err := c.getJSON(ctx, "/api/search?"+params.Encode(), &records); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(records))
	for _, r := range records {
		if r.SyncedLyrics == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:         r.ID,
			TrackName:  r.TrackName,
			ArtistName: r.ArtistName,
			AlbumName:  r.AlbumName,
			Duration:   r.Duration,
		})
	}

	if len(strings.Fields(query)) == 1 {
		rankSingleWord(results, strings.ToLower(strings.TrimSpace(query)))
	}

	return results, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lrclib request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lrclib API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding lrclib response: %w", err)
	}
	return nil
}

// rankSingleWord orders results for a one-word query: exact title matches
// first, then single-word titles, then shorter titles, alphabetical within a
// tier.
func rankSingleWord(results []SearchResult, word string) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		aTitle := strings.ToLower(a.TrackName)
		bTitle := strings.ToLower(b.TrackName)
		aWords := len(strings.Fields(a.TrackName))
		bWords := len(strings.Fields(b.TrackName))

		if (aTitle == word) != (bTitle == word) {
			return aTitle == word
		}
		if (aWords == 1) != (bWords == 1) {
			return aWords == 1
		}
		if aWords == 1 && bWords == 1 {
			return aTitle < bTitle
		}
		if aWords != bWords {
			return aWords < bWords
		}
		return aTitle < bTitle
	})
}
