package data

import (
	"math"
	"strconv"
)

// TrackProgress describes the track a job is currently working on.
//
// Percent stays within [0, 100] and Completed never exceeds Total; the
// mutators below clamp rather than reject so unexpected tool output can
// never produce an impossible state.
type TrackProgress struct {
	JobID     string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Current   int     `json:"current"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Completed int     `json:"completed"`
	Finished  bool    `json:"finished"`
}

// SetPercent stores pct clamped to [0, 100]. NaN is ignored.
func (p *TrackProgress) SetPercent(pct float64) {
	if math.IsNaN(pct) {
		return
	}
	p.Percent = math.Max(0, math.Min(100, pct))
}

// MarkCompleted increments the completed counter up to Total.
func (p *TrackProgress) MarkCompleted() {
	if p.Completed < p.Total {
		p.Completed++
	}
}

// Label renders Percent the way the popup shows it, e.g. "42.5%".
func (p TrackProgress) Label() string {
	return strconv.FormatFloat(p.Percent, 'f', -1, 64) + "%"
}

func (p *TrackProgress) setPosition(current, total int) {
	if total > p.Total {
		p.Total = total
	}
	if current < 0 {
		current = 0
	}
	if p.Total > 0 && current > p.Total {
		current = p.Total
	}
	p.Current = current
	if p.Completed > p.Total {
		p.Completed = p.Total
	}
}
