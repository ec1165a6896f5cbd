package downloader

import (
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/parser"
)

// Event is one observation about a running job, produced by a downloader in
// the order the process emitted it.
//
// Line is set for output-derived events. Exit is set only for EventExit,
// which is always the last event for a job.
type Event struct {
	ID   string
	Type EventType
	Line *parser.Line
	Exit *Exit
}

// EventType defines the set of events that downloaders may emit.
type EventType string

const (
	EventStart      EventType = "Start"
	EventTrackStart EventType = "TrackStart"
	EventProgress   EventType = "Progress"
	EventTrackDone  EventType = "TrackDone"
	EventTrackError EventType = "TrackError"
	EventFinished   EventType = "Finished"
	EventExit       EventType = "Exit"
)

// Exit describes how the process ended. Err is set when the process could
// not be waited on or was killed by a signal.
type Exit struct {
	Code int
	Err  error
}

// EventFor maps a parsed line to its event type. Unknown lines yield false.
func EventFor(l parser.Line) (EventType, bool) {
	switch l.Kind {
	case parser.KindTrackStart:
		return EventTrackStart, true
	case parser.KindProgress:
		return EventProgress, true
	case parser.KindTrackDone:
		return EventTrackDone, true
	case parser.KindTrackError:
		return EventTrackError, true
	case parser.KindFinished:
		return EventFinished, true
	}
	return "", false
}

// Apply folds e into j, using at as the finish time for EventExit. It
// returns false when e carries no job state.
func Apply(j *data.Job, e Event, at time.Time) bool {
	switch e.Type {
	case EventTrackStart:
		if e.Line == nil {
			return false
		}
		j.StartTrack(e.Line.Current, e.Line.Total, e.Line.Name)
	case EventProgress:
		if e.Line == nil {
			return false
		}
		j.SetPercent(e.Line.Percent)
	case EventTrackDone:
		if e.Line == nil {
			return false
		}
		j.CompleteTrack(e.Line.Current, e.Line.Total)
	case EventTrackError:
		if e.Line == nil {
			return false
		}
		j.AddError(e.Line.Message)
	case EventExit:
		code, cause := 0, ""
		if e.Exit != nil {
			code = e.Exit.Code
			if e.Exit.Err != nil {
				cause = e.Exit.Err.Error()
			}
		}
		j.Finish(code, cause, at)
	default:
		return false
	}
	return true
}
