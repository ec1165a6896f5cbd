// Package parser turns the downloader's text output into structured
// progress lines. Matching is best effort: lines that fit no known format
// come back as KindUnknown and are never an error.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies one output line.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindTrackStart Kind = "track_start"
	KindProgress   Kind = "progress"
	KindTrackDone  Kind = "track_done"
	KindTrackError Kind = "track_error"
	KindFinished   Kind = "finished"
)

// Line is the structured form of one recognised output line.
type Line struct {
	Kind    Kind
	Format  string
	Current int
	Total   int
	Name    string
	Percent float64
	Message string
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Parser matches lines against an ordered list of formats.
type Parser struct {
	formats []Format
}

// New returns a Parser over formats, or over Formats when none are given.
func New(formats ...Format) *Parser {
	if len(formats) == 0 {
		formats = Formats
	}
	return &Parser{formats: formats}
}

// Parse classifies a single line.
func (p *Parser) Parse(raw string) Line {
	line := strings.TrimSpace(ansiEscape.ReplaceAllString(raw, ""))
	if line == "" {
		return Line{Kind: KindUnknown}
	}
	for _, f := range p.formats {
		if l, ok := match(f, line); ok {
			return l
		}
	}
	return Line{Kind: KindUnknown, Message: line}
}

func match(f Format, line string) (Line, bool) {
	if m := find(f.TrackError, line); m != nil {
		msg := m[1]
		if f.ErrorIsName {
			msg = fmt.Sprintf("Error downloading %q", m[1])
		}
		return Line{Kind: KindTrackError, Format: f.Version, Name: nameIf(f.ErrorIsName, m[1]), Message: msg}, true
	}
	if m := find(f.TrackStart, line); m != nil {
		cur, total, ok := position(m[1], m[2])
		if !ok {
			return Line{}, false
		}
		return Line{Kind: KindTrackStart, Format: f.Version, Current: cur, Total: total, Name: m[3]}, true
	}
	if m := find(f.TrackDone, line); m != nil {
		cur, total, ok := position(m[1], m[2])
		if !ok {
			return Line{}, false
		}
		l := Line{Kind: KindTrackDone, Format: f.Version, Current: cur, Total: total}
		if len(m) > 3 {
			l.Name = m[3]
		}
		return l, true
	}
	if m := find(f.Progress, line); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Line{}, false
		}
		return Line{Kind: KindProgress, Format: f.Version, Percent: pct}, true
	}
	if f.Finished != nil && f.Finished.MatchString(line) {
		return Line{Kind: KindFinished, Format: f.Version, Message: line}, true
	}
	return Line{}, false
}

func find(re *regexp.Regexp, s string) []string {
	if re == nil {
		return nil
	}
	return re.FindStringSubmatch(s)
}

func position(cur, total string) (int, int, bool) {
	c, err := strconv.Atoi(cur)
	if err != nil {
		return 0, 0, false
	}
	t, err := strconv.Atoi(total)
	if err != nil {
		return 0, 0, false
	}
	return c, t, true
}

func nameIf(ok bool, s string) string {
	if ok {
		return s
	}
	return ""
}
