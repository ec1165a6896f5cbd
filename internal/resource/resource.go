// Package resource parses the Apple Music references the extension sends.
package resource

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tinoosan/tunebridge/internal/data"
)

const (
	baseURL           = "https://music.apple.com"
	defaultStorefront = "us"
)

// Type is the catalog kind a reference points at.
type Type string

const (
	Artist     Type = "artist"
	Album      Type = "album"
	Playlist   Type = "playlist"
	Song       Type = "song"
	MusicVideo Type = "music-video"
	Post       Type = "post"
	Library    Type = "library"
)

var (
	urlPattern = regexp.MustCompile(`^https://music\.apple\.com` +
		`(?:` +
		`/(?P<storefront>[a-z]{2})` +
		`/(?P<type>artist|album|playlist|song|music-video|post)` +
		`(?:/(?P<slug>[^\s/]+))?` +
		`/(?P<id>[0-9]+|pl\.[0-9a-z]{32}|pl\.u-[a-zA-Z0-9]+)` +
		`(?:\?i=(?P<sub_id>[0-9]+))?` +
		`|` +
		`(?:/(?P<library_storefront>[a-z]{2}))?` +
		`/library/(?P<library_type>playlist|albums)` +
		`/(?P<library_id>p\.[a-zA-Z0-9]+|l\.[a-zA-Z0-9]+)` +
		`)`)

	shortPattern = regexp.MustCompile(`^(artist|album|playlist|song|music-video|post):([0-9]+|pl\.[0-9a-z]{32}|pl\.u-[a-zA-Z0-9]+)$`)
)

// Ref is a parsed resource reference.
type Ref struct {
	Storefront string
	Type       Type
	Slug       string
	ID         string
	SubID      string
	// LibraryType is set for library URLs ("playlist" or "albums").
	LibraryType string
	raw         string
}

// Parse accepts either a full Apple Music URL or a short "type:id"
// reference such as "album:123".
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if m := shortPattern.FindStringSubmatch(s); m != nil {
		return Ref{Storefront: defaultStorefront, Type: Type(m[1]), ID: m[2]}, nil
	}
	m := urlPattern.FindStringSubmatch(s)
	if m == nil {
		return Ref{}, fmt.Errorf("%w: %q", data.ErrInvalidResource, s)
	}
	group := func(name string) string { return m[urlPattern.SubexpIndex(name)] }

	if lt := group("library_type"); lt != "" {
		sf := group("library_storefront")
		if sf == "" {
			sf = defaultStorefront
		}
		return Ref{Storefront: sf, Type: Library, LibraryType: lt, ID: group("library_id"), raw: s}, nil
	}
	return Ref{
		Storefront: group("storefront"),
		Type:       Type(group("type")),
		Slug:       group("slug"),
		ID:         group("id"),
		SubID:      group("sub_id"),
		raw:        s,
	}, nil
}

// Key is a short stable form of the reference, e.g. "album:123".
func (r Ref) Key() string {
	if r.Type == Library {
		return "library-" + r.LibraryType + ":" + r.ID
	}
	if r.SubID != "" {
		return string(r.Type) + ":" + r.ID + "?i=" + r.SubID
	}
	return string(r.Type) + ":" + r.ID
}

// URL returns the reference as a URL the tool accepts. Parsed URLs are
// returned verbatim; short references are expanded.
func (r Ref) URL() string {
	if r.raw != "" {
		return r.raw
	}
	if r.Type == Library {
		return fmt.Sprintf("%s/%s/library/%s/%s", baseURL, r.Storefront, r.LibraryType, r.ID)
	}
	u := fmt.Sprintf("%s/%s/%s/%s", baseURL, r.Storefront, r.Type, r.ID)
	if r.Slug != "" {
		u = fmt.Sprintf("%s/%s/%s/%s/%s", baseURL, r.Storefront, r.Type, r.Slug, r.ID)
	}
	if r.SubID != "" {
		u += "?i=" + url.QueryEscape(r.SubID)
	}
	return u
}

// ItemURLs maps a selection of child item ids to the URLs handed to the
// tool. Artist selections are albums; album selections are songs addressed
// through the album URL's "i" parameter. Other types have no addressable
// children, so the reference itself is the only target, as it is without a
// selection.
func (r Ref) ItemURLs(selected []string) []string {
	if len(selected) == 0 || !r.SupportsListing() {
		return []string{r.URL()}
	}
	out := make([]string, 0, len(selected))
	for _, id := range selected {
		switch r.Type {
		case Artist:
			out = append(out, fmt.Sprintf("%s/%s/album/%s", baseURL, r.Storefront, id))
		case Album:
			base, _, _ := strings.Cut(r.URL(), "?")
			out = append(out, base+"?i="+url.QueryEscape(id))
		}
	}
	return out
}

// SupportsListing reports whether the reference has child items.
func (r Ref) SupportsListing() bool {
	return r.Type == Artist || r.Type == Album
}
