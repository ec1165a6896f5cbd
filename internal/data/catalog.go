package data

// ItemType is the kind of a catalog child item.
type ItemType string

const (
	ItemSong  ItemType = "song"
	ItemAlbum ItemType = "album"
)

// CatalogItem is one child of an artist or album page. It is rebuilt on
// every listing request.
type CatalogItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           ItemType `json:"type"`
	ArtistName     string   `json:"artistName,omitempty"`
	DurationMillis int64    `json:"durationInMillis,omitempty"`
	TrackNumber    int      `json:"trackNumber,omitempty"`
	DiscNumber     int      `json:"discNumber,omitempty"`
	TrackCount     int      `json:"trackCount,omitempty"`
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	ContentRating  string   `json:"contentRating,omitempty"`
	Downloaded     bool     `json:"downloaded"`
}

// Listing is the result of a successful item query.
type Listing struct {
	Type       string        `json:"type"`
	ArtistName string        `json:"artistName,omitempty"`
	AlbumName  string        `json:"albumName,omitempty"`
	Items      []CatalogItem `json:"items"`
}

// StatusSnapshot is the immutable answer to a status poll.
type StatusSnapshot struct {
	IsDownloading bool            `json:"isDownloading"`
	ProcessCount  int             `json:"processCount"`
	Tracks        []TrackProgress `json:"tracks"`
	Errors        []string        `json:"errors"`
}
