package resource

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tinoosan/tunebridge/internal/data"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantKey string
		wantTyp Type
		wantSF  string
		wantErr error
	}{
		{"short album", "album:123", "album:123", Album, "us", nil},
		{"album url", "https://music.apple.com/gb/album/some-record/1440857781", "album:1440857781", Album, "gb", nil},
		{"song in album", "https://music.apple.com/us/album/x/1440857781?i=1440858000", "album:1440857781?i=1440858000", Album, "us", nil},
		{"artist url", "https://music.apple.com/us/artist/someone/12345", "artist:12345", Artist, "us", nil},
		{"playlist url", "https://music.apple.com/us/playlist/mix/pl.u-abc123", "playlist:pl.u-abc123", Playlist, "us", nil},
		{"library url", "https://music.apple.com/library/playlist/p.AbC123", "library-playlist:p.AbC123", Library, "us", nil},
		{"wrong host", "https://example.com/us/album/x/1", "", "", "", data.ErrInvalidResource},
		{"garbage", "album 123", "", "", "", data.ErrInvalidResource},
		{"empty", "", "", "", "", data.ErrInvalidResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Parse(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if ref.Key() != tt.wantKey || ref.Type != tt.wantTyp || ref.Storefront != tt.wantSF {
				t.Fatalf("unexpected ref: %#v (key %q)", ref, ref.Key())
			}
		})
	}
}

func TestItemURLs(t *testing.T) {
	album, _ := Parse("https://music.apple.com/us/album/rec/555?i=1")
	artist, _ := Parse("artist:42")
	song, _ := Parse("song:7")

	tests := []struct {
		name     string
		ref      Ref
		selected []string
		want     []string
	}{
		{"album selection", album, []string{"9", "10"}, []string{
			"https://music.apple.com/us/album/rec/555?i=9",
			"https://music.apple.com/us/album/rec/555?i=10",
		}},
		{"artist selection", artist, []string{"100"}, []string{"https://music.apple.com/us/album/100"}},
		{"no selection", album, nil, []string{"https://music.apple.com/us/album/rec/555?i=1"}},
		{"short ref expands", song, nil, []string{"https://music.apple.com/us/song/7"}},
		{"selection on song ignored", song, []string{"1", "2"}, []string{"https://music.apple.com/us/song/7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.ItemURLs(tt.selected); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestSupportsListing(t *testing.T) {
	for in, want := range map[string]bool{"album:1": true, "artist:1": true, "song:1": false, "playlist:pl.u-x": false} {
		ref, err := Parse(in)
		if err != nil {
			t.Fatalf("parse %s: %v", in, err)
		}
		if ref.SupportsListing() != want {
			t.Fatalf("%s: SupportsListing = %v", in, !want)
		}
	}
}
