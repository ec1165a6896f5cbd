package downloader

// Reporter publishes downloader events. Implementations must preserve the
// order of calls made from a single goroutine.
type Reporter interface {
	Report(Event)
}

// ChanReporter writes events to a channel. Report blocks while the channel
// is full so no output line is ever dropped.
type ChanReporter struct {
	ch chan<- Event
}

func NewChanReporter(ch chan<- Event) *ChanReporter { return &ChanReporter{ch: ch} }

func (r *ChanReporter) Report(e Event) {
	if r == nil {
		return
	}
	r.ch <- e
}
