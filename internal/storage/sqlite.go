package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/pkg/utils"
)

const DefaultDBFile = "karaokestage.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Song is a library entry: a YouTube-backed karaoke track with its synced
// lyrics and the shared timing offset.
type Song struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	VideoID      string `gorm:"uniqueIndex:idx_video_id" json:"video_id"`
	Title        string `gorm:"index:idx_song_meta,priority:1" json:"title"`
	Artist       string `gorm:"index:idx_song_meta,priority:2" json:"artist"`
	ThumbnailURL string `json:"thumbnail_url"`
	Genre        string `json:"genre"`
	Gender       string `json:"gender"`
	Year         int    `json:"year"`
	// Lyrics holds the synced lines as a JSON array of {time, text}.
	Lyrics       string  `json:"-"`
	PlayCount    int     `gorm:"default:0" json:"play_count"`
	LyricsOffset float64 `gorm:"default:0" json:"lyrics_offset"`
	CreatedAt    time.Time
}

// Lines decodes the stored lyric lines. A song without synced lyrics
// yields an empty slice.
func (s *Song) Lines() []lyrics.Line {
	if s.Lyrics == "" {
		return nil
	}
	var lines []lyrics.Line
	if err := json.Unmarshal([]byte(s.Lyrics), &lines); err != nil {
		return nil
	}
	return lines
}

// SetLines encodes lyric lines into the stored JSON column.
func (s *Song) SetLines(lines []lyrics.Line) error {
	if len(lines) == 0 {
		s.Lyrics = ""
		return nil
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encoding lyrics: %w", err)
	}
	s.Lyrics = string(data)
	return nil
}

// Performance is one scored session result for a song.
type Performance struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	SongID      string `gorm:"type:varchar(36);index:idx_perf_song" json:"song_id"`
	PitchScore  int    `json:"pitch_score"`
	TimingScore int    `json:"timing_score"`
	RhythmScore int    `json:"rhythm_score"`
	TotalScore  int    `json:"total_score"`
	CreatedAt   time.Time
}

type Playlist struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlaylistSong is ordered playlist membership; Position is the song's slot
// within the playlist.
type PlaylistSong struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	PlaylistID string `gorm:"type:varchar(36);index:idx_pls_playlist" json:"playlist_id"`
	SongID     string `gorm:"type:varchar(36);index:idx_pls_song" json:"song_id"`
	Position   int    `json:"position"`
	AddedAt    time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("KARAOKE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Performance{}, &Playlist{}, &PlaylistSong{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CreateSong stores a new song, assigning an ID when missing. VideoID is
// unique: when the song already exists the stored record is returned
// unchanged instead of an error.
func (c *DBClient) CreateSong(song *Song) (*Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	if song.VideoID == "" {
		return nil, errors.New("song has no video ID")
	}

	var existing Song
	err := c.DB.Where("video_id = ?", song.VideoID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("querying existing song: %w", err)
	}

	if song.ID == "" {
		song.ID = utils.GenerateUUID()
	}
	song.LyricsOffset = lyrics.ClampOffset(song.LyricsOffset)

	if err := c.DB.Create(song).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "constraint failed") {
			if fetchErr := c.DB.Where("video_id = ?", song.VideoID).First(&existing).Error; fetchErr != nil {
				return nil, fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("creating song: %w", err)
	}

	return song, nil
}

func (c *DBClient) GetSongByID(id string) (*Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var song Song
	if err := c.DB.Where("id = ?", id).First(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &song, nil
}

func (c *DBClient) GetSongByVideoID(videoID string) (*Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var song Song
	if err := c.DB.Where("video_id = ?", videoID).First(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying song by video ID: %w", err)
	}
	return &song, nil
}

func (c *DBClient) ListSongs() ([]Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var songs []Song
	if err := c.DB.Order("created_at DESC").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	return songs, nil
}

// UpdateSong applies the given column updates to a song.
func (c *DBClient) UpdateSong(id string, updates map[string]any) (*Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	res := c.DB.Model(&Song{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("updating song: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return c.GetSongByID(id)
}

// DeleteSong removes a song along with its performances and playlist
// entries.
func (c *DBClient) DeleteSong(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", id).Delete(&Performance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("song_id = ?", id).Delete(&PlaylistSong{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&Song{}).Error; err != nil {
			return err
		}
		return nil
	})
}

// IncrementPlayCount bumps the global play counter for a song.
func (c *DBClient) IncrementPlayCount(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Model(&Song{}).Where("id = ?", id).
		UpdateColumn("play_count", gorm.Expr("play_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("incrementing play count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveLyricsOffset persists the shared lyric timing adjustment for a song.
// Offsets outside [-20, 20] are rejected.
func (c *DBClient) SaveLyricsOffset(id string, offset float64) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if offset < lyrics.OffsetMin || offset > lyrics.OffsetMax {
		return fmt.Errorf("offset %.2f outside allowed range [%.0f, %.0f]",
			offset, lyrics.OffsetMin, lyrics.OffsetMax)
	}
	res := c.DB.Model(&Song{}).Where("id = ?", id).Update("lyrics_offset", offset)
	if res.Error != nil {
		return fmt.Errorf("saving lyrics offset: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *DBClient) CreatePerformance(p *Performance) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if p.ID == "" {
		p.ID = utils.GenerateUUID()
	}
	if err := c.DB.Create(p).Error; err != nil {
		return fmt.Errorf("creating performance: %w", err)
	}
	return nil
}

func (c *DBClient) ListPerformancesBySong(songID string) ([]Performance, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var performances []Performance
	if err := c.DB.Where("song_id = ?", songID).Order("created_at DESC").Find(&performances).Error; err != nil {
		return nil, fmt.Errorf("listing performances: %w", err)
	}
	return performances, nil
}

func (c *DBClient) CreatePlaylist(name, description string) (*Playlist, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	playlist := &Playlist{
		ID:          utils.GenerateUUID(),
		Name:        name,
		Description: description,
	}
	if err := c.DB.Create(playlist).Error; err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}
	return playlist, nil
}

func (c *DBClient) GetPlaylist(id string) (*Playlist, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var playlist Playlist
	if err := c.DB.Where("id = ?", id).First(&playlist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &playlist, nil
}

func (c *DBClient) ListPlaylists() ([]Playlist, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var playlists []Playlist
	if err := c.DB.Order("created_at DESC").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	return playlists, nil
}

func (c *DBClient) UpdatePlaylist(id, name, description string) (*Playlist, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	res := c.DB.Model(&Playlist{}).Where("id = ?", id).Updates(map[string]any{
		"name":        name,
		"description": description,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("updating playlist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return c.GetPlaylist(id)
}

func (c *DBClient) DeletePlaylist(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&PlaylistSong{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&Playlist{}).Error; err != nil {
			return err
		}
		return nil
	})
}

// AddSongToPlaylist appends a song at the end of a playlist's order.
func (c *DBClient) AddSongToPlaylist(playlistID, songID string) (*PlaylistSong, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	if _, err := c.GetPlaylist(playlistID); err != nil {
		return nil, err
	}
	if _, err := c.GetSongByID(songID); err != nil {
		return nil, err
	}

	entry := &PlaylistSong{
		ID:         utils.GenerateUUID(),
		PlaylistID: playlistID,
		SongID:     songID,
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		var maxPos sql.NullInt64
		if err := tx.Model(&PlaylistSong{}).Where("playlist_id = ?", playlistID).
			Select("MAX(position)").Scan(&maxPos).Error; err != nil {
			return err
		}
		entry.Position = 0
		if maxPos.Valid {
			entry.Position = int(maxPos.Int64) + 1
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("adding song to playlist: %w", err)
	}

	return entry, nil
}

func (c *DBClient) RemoveSongFromPlaylist(playlistID, songID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("playlist_id = ? AND song_id = ?", playlistID, songID).Delete(&PlaylistSong{})
	if res.Error != nil {
		return fmt.Errorf("removing song from playlist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPlaylistSongs returns a playlist's songs in position order.
func (c *DBClient) ListPlaylistSongs(playlistID string) ([]Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var entries []PlaylistSong
	if err := c.DB.Where("playlist_id = ?", playlistID).Order("position ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing playlist entries: %w", err)
	}

	songs := make([]Song, 0, len(entries))
	for _, entry := range entries {
		song, err := c.GetSongByID(entry.SongID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, nil
}
