package handler

import "sync"

// Progress tracks a run for the status endpoint. It is updated by the
// run's goroutine and read by request handlers.
type Progress struct {
	mu      sync.RWMutex
	periods int
	period  int
	done    bool
	err     error
}

// NewProgress creates a Progress for a run of the given length.
func NewProgress(periods int) *Progress {
	return &Progress{periods: periods}
}

// SetPeriod records the last completed period.
func (p *Progress) SetPeriod(period int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.period = period
}

// Finish marks the run as ended, successfully when err is nil.
func (p *Progress) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = true
	p.err = err
}

// Status is the JSON response for GET /status.
type Status struct {
	Period  int     `json:"period"`
	Periods int     `json:"periods"`
	Done    bool    `json:"done"`
	Error   *string `json:"error"`
}

// Snapshot returns the current progress as a response body.
func (p *Progress) Snapshot() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	resp := Status{Period: p.period, Periods: p.periods, Done: p.done}
	if p.err != nil {
		msg := p.err.Error()
		resp.Error = &msg
	}
	return resp
}
