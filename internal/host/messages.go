package host

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tinoosan/tunebridge/internal/data"
)

// Actions understood by the host.
const (
	ActionDownload    = "download"
	ActionFetchItems  = "fetch_items"
	ActionCheckStatus = "check_status"
	ActionHistory     = "history"
)

// Request is one message from the extension.
type Request struct {
	Action      string `json:"action"`
	URL         string `json:"url,omitempty"`
	SelectedIDs IDList `json:"selectedIds,omitempty"`
	Codec       string `json:"codec,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// IDList accepts item ids sent either as strings or as numbers.
type IDList []string

func (l *IDList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	out := make(IDList, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return errors.New("selectedIds must hold strings or numbers")
		}
		out = append(out, n.String())
	}
	*l = out
	return nil
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type DownloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
}

type ItemsResponse struct {
	Success    bool               `json:"success"`
	Type       string             `json:"type"`
	ArtistName string             `json:"artistName,omitempty"`
	AlbumName  string             `json:"albumName,omitempty"`
	Items      []data.CatalogItem `json:"items"`
}

// TrackStatus is one popup row. Progress repeats Percent as the label the
// popup renders.
type TrackStatus struct {
	data.TrackProgress
	Progress string `json:"progress"`
}

type StatusResponse struct {
	Success       bool          `json:"success"`
	IsDownloading bool          `json:"isDownloading"`
	ProcessCount  int           `json:"processCount"`
	Tracks        []TrackStatus `json:"tracks"`
	Errors        []string      `json:"errors"`
}

type HistoryResponse struct {
	Success bool                `json:"success"`
	Entries []data.HistoryEntry `json:"entries"`
}

// NewStatusResponse converts a snapshot to its wire form.
func NewStatusResponse(s data.StatusSnapshot) StatusResponse {
	tracks := make([]TrackStatus, 0, len(s.Tracks))
	for _, tp := range s.Tracks {
		tracks = append(tracks, TrackStatus{TrackProgress: tp, Progress: tp.Label()})
	}
	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	return StatusResponse{
		Success:       true,
		IsDownloading: s.IsDownloading,
		ProcessCount:  s.ProcessCount,
		Tracks:        tracks,
		Errors:        errs,
	}
}

// Message maps an error to the text shown in the popup.
func Message(err error) string {
	switch {
	case errors.Is(err, data.ErrMissingURL):
		return "No URL provided"
	case errors.Is(err, data.ErrInvalidResource):
		return "Invalid Apple Music URL"
	case errors.Is(err, data.ErrToolNotFound):
		return data.ErrToolNotFound.Error()
	case errors.Is(err, data.ErrDuplicate):
		return "Download already in progress"
	case errors.Is(err, data.ErrUnsupportedListing):
		return "Item listing is not available for this page"
	case errors.Is(err, data.ErrShuttingDown):
		return "Host is shutting down"
	}
	var fe *data.FetchError
	if errors.As(err, &fe) {
		return capitalize(fe.Err.Error())
	}
	return capitalize(err.Error())
}

func Failure(err error) ErrorResponse {
	return ErrorResponse{Success: false, Error: Message(err)}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
