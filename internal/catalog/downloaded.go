package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinoosan/tunebridge/internal/data"
)

var audioExts = map[string]bool{".m4a": true, ".mp3": true, ".flac": true, ".aac": true}

// markDownloaded sets Downloaded on every item that already has audio under
// the output directory. An unreadable directory counts as not downloaded.
func (l *Lister) markDownloaded(listing *data.Listing) {
	if l.opts.OutputDir == "" {
		return
	}
	// song listings share one album folder
	var songFiles []string
	songFilesRead := false
	for i := range listing.Items {
		it := &listing.Items[i]
		switch it.Type {
		case data.ItemAlbum:
			artist := it.ArtistName
			if artist == "" {
				artist = listing.ArtistName
			}
			it.Downloaded = len(audioFiles(l.albumDir(artist, it.Name))) > 0
		case data.ItemSong:
			if !songFilesRead {
				songFiles = audioFiles(l.albumDir(listing.ArtistName, listing.AlbumName))
				songFilesRead = true
			}
			it.Downloaded = hasTrack(songFiles, *it)
		}
	}
}

func (l *Lister) albumDir(artist, album string) string {
	if artist == "" || album == "" {
		return ""
	}
	return filepath.Join(l.opts.OutputDir, Sanitize(artist), Sanitize(album))
}

// audioFiles returns the names of audio files directly inside dir.
func audioFiles(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if audioExts[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, e.Name())
		}
	}
	return out
}

// hasTrack reports whether files holds the song: a name starting with the
// track number (optionally preceded by the disc, "2-05 ...") that contains
// the title.
func hasTrack(files []string, it data.CatalogItem) bool {
	if it.TrackNumber <= 0 {
		return false
	}
	title := strings.ToLower(Sanitize(it.Name))
	prefixes := []string{
		fmt.Sprintf("%02d ", it.TrackNumber),
		fmt.Sprintf("%d ", it.TrackNumber),
		fmt.Sprintf("%d-%02d ", discOf(it), it.TrackNumber),
	}
	for _, f := range files {
		name := strings.ToLower(strings.TrimSuffix(f, filepath.Ext(f)))
		if !strings.Contains(name, title) {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				return true
			}
		}
	}
	return false
}

var illegalChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// Sanitize maps a name to the form the tool uses for files and folders.
func Sanitize(name string) string {
	s := illegalChars.Replace(name)
	return strings.TrimRight(strings.TrimSpace(s), ". ")
}
