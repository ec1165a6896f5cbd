package parser

import "regexp"

// Format is one versioned set of output patterns. Patterns for a kind may be
// nil when a format has no such line. Capture groups:
//
//	TrackStart: current, total, name
//	Progress:   percent
//	TrackDone:  current, total (optional name)
//	TrackError: message or track name
//	Finished:   none
type Format struct {
	Version    string
	TrackStart *regexp.Regexp
	Progress   *regexp.Regexp
	TrackDone  *regexp.Regexp
	TrackError *regexp.Regexp
	Finished   *regexp.Regexp
	// ErrorIsName means TrackError captures a track name, not a message.
	ErrorIsName bool
}

// GamdlV2 matches the progress lines printed by gamdl 2.x.
var GamdlV2 = Format{
	Version:     "gamdl/2",
	TrackStart:  regexp.MustCompile(`\[Track (\d+)/(\d+)\] Downloading "([^"]+)"`),
	Progress:    regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`),
	TrackDone:   regexp.MustCompile(`\[Track (\d+)/(\d+)\] Downloaded "([^"]+)"`),
	TrackError:  regexp.MustCompile(`(?i)ERROR.*?downloading "([^"]+)"`),
	Finished:    regexp.MustCompile(`Finished with`),
	ErrorIsName: true,
}

// PlainV1 is a minimal line protocol used by wrapper scripts and tests.
var PlainV1 = Format{
	Version:    "plain/1",
	TrackStart: regexp.MustCompile(`^track (\d+)/(\d+) (.+) started$`),
	Progress:   regexp.MustCompile(`^progress (\d+(?:\.\d+)?)%$`),
	TrackDone:  regexp.MustCompile(`^track (\d+)/(\d+) completed$`),
	TrackError: regexp.MustCompile(`^(?i:error):?\s+(.+)$`),
	Finished:   regexp.MustCompile(`^finished$`),
}

// Formats is the default set, tried in order.
var Formats = []Format{GamdlV2, PlainV1}

// Lookup returns the format in Formats with the given version.
func Lookup(version string) (Format, bool) {
	for _, f := range Formats {
		if f.Version == version {
			return f, true
		}
	}
	return Format{}, false
}
