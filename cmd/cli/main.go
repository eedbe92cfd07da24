package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/karaokestage/KaraokeStage/internal/audio"
	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/internal/service"
	"github.com/karaokestage/KaraokeStage/internal/session"
	"github.com/karaokestage/KaraokeStage/internal/storage"
	"github.com/karaokestage/KaraokeStage/internal/vocal"
	"github.com/karaokestage/KaraokeStage/pkg/logger"
)

// Global flags
var dbPath string

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("KARAOKE_DB_PATH", storage.DefaultDBFile), "Path to the SQLite database file")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (*service.KaraokeService, error) {
	return service.New(service.WithDBPath(dbPath))
}

func main() {
	log := logger.GetLogger()

	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Infof("Executing command: %s", command)

	switch command {
	case "add":
		handleAdd()
	case "list":
		handleList()
	case "search":
		handleSearch()
	case "lyrics":
		handleLyrics()
	case "sing":
		handleSing()
	case "score":
		handleScore()
	case "offset":
		handleOffset()
	case "delete":
		handleDelete()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 _  __                     _        ____  _
| |/ /__ _ _ __ __ _  ___ | | _____/ ___|| |_ __ _  __ _  ___
| ' // _' | '__/ _' |/ _ \| |/ / _ \___ \| __/ _' |/ _' |/ _ \
| . \ (_| | | | (_| | (_) |   <  __/___) | || (_| | (_| |  __/
|_|\_\__,_|_|  \__,_|\___/|_|\_\___|____/ \__\__,_|\__, |\___|
                                                   |___/
              Sing. Score. Repeat.
`
	fmt.Println(banner)
}

func handleAdd() {
	log := logger.GetLogger()

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	youtubeURL := addCmd.String("youtube-url", "", "YouTube URL to import (metadata and lyrics resolved automatically)")
	videoID := addCmd.String("video-id", "", "YouTube video ID (manual mode)")
	title := addCmd.String("title", "", "Song title (required with --video-id)")
	artist := addCmd.String("artist", "", "Artist name (required with --video-id)")
	genre := addCmd.String("genre", "", "Genre (optional)")
	year := addCmd.Int("year", 0, "Release year (optional)")
	addCmd.Parse(os.Args[2:])

	if *youtubeURL == "" && *videoID == "" {
		fmt.Println("Error: --youtube-url or --video-id required")
		fmt.Println("Usage: karaokestage add --youtube-url <url>")
		fmt.Println("   OR: karaokestage add --video-id <id> --title <title> --artist <artist>")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	var song *storage.Song
	if *youtubeURL != "" {
		fmt.Println("📥 Resolving video metadata and lyrics...")
		fmt.Println("   This may take a few moments")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		song, err = svc.ImportFromYouTube(ctx, *youtubeURL)
	} else {
		if *title == "" || *artist == "" {
			fmt.Println("Error: --title and --artist are required with --video-id")
			log.Warn("Missing required arguments: title and artist")
			os.Exit(1)
		}
		song, err = svc.AddSong(&storage.Song{
			VideoID: *videoID,
			Title:   *title,
			Artist:  *artist,
			Genre:   *genre,
			Year:    *year,
		})
	}
	if err != nil {
		fmt.Printf("\n❌ Failed to add song: %v\n", err)
		log.Errorf("Add song failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Song added to library!")
	fmt.Printf("   ID:      %s\n", song.ID)
	fmt.Printf("   Title:   %s\n", song.Title)
	fmt.Printf("   Artist:  %s\n", song.Artist)
	fmt.Printf("   Video:   https://youtube.com/watch?v=%s\n", song.VideoID)
	if len(song.Lines()) > 0 {
		fmt.Printf("   Lyrics:  %d synced lines\n", len(song.Lines()))
	} else {
		fmt.Println("   Lyrics:  none found (attach later)")
	}
	log.Infof("Added song ID=%s", song.ID)
}

func handleList() {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	songs, err := svc.ListSongs()
	if err != nil {
		fmt.Printf("❌ Failed to list songs: %v\n", err)
		log.Errorf("ListSongs failed: %v", err)
		os.Exit(1)
	}

	if len(songs) == 0 {
		fmt.Println("\n📭 No songs in library")
		return
	}

	fmt.Printf("\n📚 Found %d song(s):\n\n", len(songs))
	for i, song := range songs {
		fmt.Printf("%d. \"%s\" by %s (ID: %s)\n", i+1, song.Title, song.Artist, song.ID)
		fmt.Printf("   Video: https://youtube.com/watch?v=%s\n", song.VideoID)
		fmt.Printf("   Plays: %d", song.PlayCount)
		if lines := song.Lines(); len(lines) > 0 {
			fmt.Printf(" | Lyrics: %d lines", len(lines))
		}
		if song.LyricsOffset != 0 {
			fmt.Printf(" | Offset: %+.1fs", song.LyricsOffset)
		}
		fmt.Println()
		fmt.Println()
	}
	log.Infof("Listed %d songs", len(songs))
}

func handleSearch() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: karaokestage search <query>")
		os.Exit(1)
	}
	query := os.Args[2]

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	fmt.Printf("🔍 Searching lyrics catalog for %q...\n", query)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := svc.SearchLyrics(ctx, query)
	if err != nil {
		fmt.Printf("❌ Search failed: %v\n", err)
		log.Errorf("SearchLyrics failed: %v", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("\n❌ No tracks with synced lyrics found")
		return
	}

	fmt.Printf("\n✅ Found %d track(s) with synced lyrics:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. \"%s\" by %s", i+1, result.TrackName, result.ArtistName)
		if result.AlbumName != "" {
			fmt.Printf(" [%s]", result.AlbumName)
		}
		if result.Duration > 0 {
			total := int(result.Duration)
			fmt.Printf(" (%d:%02d)", total/60, total%60)
		}
		fmt.Println()
	}
}

func handleLyrics() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: karaokestage lyrics <song_id>")
		os.Exit(1)
	}
	songID := os.Args[2]

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	song, err := svc.GetSong(songID)
	if err != nil {
		fmt.Printf("❌ Song not found (ID: %s)\n", songID)
		log.Warnf("Song %s not found: %v", songID, err)
		os.Exit(1)
	}

	lines := song.Lines()
	if len(lines) == 0 {
		fmt.Printf("\n📭 \"%s\" has no synced lyrics\n", song.Title)
		return
	}

	fmt.Printf("\n🎼 \"%s\" by %s (%d lines):\n\n", song.Title, song.Artist, len(lines))
	fmt.Print(lyrics.FormatLRC(lines))
}

// wallClock drives a session from process wall time, standing in for a
// video player position.
type wallClock struct {
	start time.Time
}

func (c *wallClock) CurrentTime() float64 {
	return time.Since(c.start).Seconds()
}

func (c *wallClock) IsPlaying() bool {
	return true
}

func handleSing() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: karaokestage sing <song_id> [--duration <seconds>]")
		os.Exit(1)
	}
	songID := os.Args[2]

	singCmd := flag.NewFlagSet("sing", flag.ExitOnError)
	duration := singCmd.Int("duration", 0, "Stop automatically after this many seconds (0 = sing until Ctrl-C)")
	singCmd.Parse(os.Args[3:])

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	song, err := svc.GetSong(songID)
	if err != nil {
		fmt.Printf("❌ Song not found (ID: %s)\n", songID)
		log.Warnf("Song %s not found: %v", songID, err)
		os.Exit(1)
	}

	controller := session.NewController(&wallClock{start: time.Now()})
	defer controller.Close()
	controller.SetSong(song.Lines(), song.LyricsOffset)

	fmt.Printf("\n🎤 Singing \"%s\" by %s\n", song.Title, song.Artist)
	fmt.Println("   Starting microphone...")

	if err := controller.Start(); err != nil {
		fmt.Printf("❌ Could not start session: %v\n", err)
		fmt.Println("   Check that a microphone is connected and try again")
		log.Errorf("Session start failed: %v", err)
		os.Exit(1)
	}

	if err := svc.RegisterPlay(songID); err != nil {
		log.Warnf("Failed to record play: %v", err)
	}

	if *duration > 0 {
		fmt.Printf("   Recording for %d seconds...\n", *duration)
		time.Sleep(time.Duration(*duration) * time.Second)
	} else {
		fmt.Println("   Recording. Press Ctrl-C to finish.")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		signal.Stop(sigCh)
	}

	scores, err := controller.Stop()
	if err != nil {
		fmt.Printf("❌ Failed to stop session: %v\n", err)
		log.Errorf("Session stop failed: %v", err)
		os.Exit(1)
	}

	printScores(scores)

	if _, err := svc.SavePerformance(songID, scores); err != nil {
		fmt.Printf("⚠️  Could not save performance: %v\n", err)
		log.Errorf("SavePerformance failed: %v", err)
		return
	}
	fmt.Println("💾 Performance saved")
}

func handleScore() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: karaokestage score <take.wav> [--song <song_id>]")
		os.Exit(1)
	}
	wavPath := os.Args[2]

	scoreCmd := flag.NewFlagSet("score", flag.ExitOnError)
	songID := scoreCmd.String("song", "", "Save the result as a performance of this song")
	scoreCmd.Parse(os.Args[3:])

	fmt.Printf("🎧 Scoring recorded take: %s\n", wavPath)

	samples, sampleRate, err := audio.ReadWAV(wavPath)
	if err != nil {
		fmt.Printf("❌ Failed to read WAV file: %v\n", err)
		log.Errorf("ReadWAV failed: %v", err)
		os.Exit(1)
	}
	log.Infof("Loaded %d samples at %d Hz", len(samples), sampleRate)

	scores := vocal.ScoreSamples(samples)
	printScores(scores)

	if *songID == "" {
		return
	}

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	if _, err := svc.SavePerformance(*songID, scores); err != nil {
		fmt.Printf("⚠️  Could not save performance: %v\n", err)
		log.Errorf("SavePerformance failed: %v", err)
		os.Exit(1)
	}
	fmt.Println("💾 Performance saved")
}

func handleOffset() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: karaokestage offset <song_id> [seconds]")
		os.Exit(1)
	}
	songID := os.Args[2]

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	if len(os.Args) < 4 {
		song, err := svc.GetSong(songID)
		if err != nil {
			fmt.Printf("❌ Song not found (ID: %s)\n", songID)
			os.Exit(1)
		}
		fmt.Printf("\n⏱  Lyric offset for \"%s\": %+.2fs\n", song.Title, song.LyricsOffset)
		return
	}

	offset, err := strconv.ParseFloat(os.Args[3], 64)
	if err != nil {
		fmt.Printf("❌ Invalid offset: %v\n", err)
		os.Exit(1)
	}

	if err := svc.SaveLyricsOffset(songID, offset); err != nil {
		fmt.Printf("❌ Failed to save offset: %v\n", err)
		log.Errorf("SaveLyricsOffset failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("\n✅ Lyric offset set to %+.2fs\n", offset)
}

func handleDelete() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: karaokestage delete <song_id>")
		os.Exit(1)
	}
	songID := os.Args[2]

	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	song, err := svc.GetSong(songID)
	if err != nil {
		fmt.Printf("❌ Song not found (ID: %s)\n", songID)
		log.Warnf("Song %s not found: %v", songID, err)
		os.Exit(1)
	}

	if err := svc.DeleteSong(songID); err != nil {
		fmt.Printf("❌ Failed to delete song: %v\n", err)
		log.Errorf("DeleteSong failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Deleted song:\n")
	fmt.Printf("   Title:  %s\n", song.Title)
	fmt.Printf("   Artist: %s\n", song.Artist)
	log.Infof("Deleted song ID=%s ('%s' by '%s')", songID, song.Title, song.Artist)
}

func printScores(scores vocal.Breakdown) {
	fmt.Println("\n🏆 Final Scores:")
	fmt.Printf("   Pitch:  %3d\n", scores.PitchScore)
	fmt.Printf("   Timing: %3d\n", scores.TimingScore)
	fmt.Printf("   Rhythm: %3d\n", scores.RhythmScore)
	fmt.Printf("   ─────────────\n")
	fmt.Printf("   Total:  %3d\n", scores.TotalScore)
}
