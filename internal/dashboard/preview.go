package dashboard

import (
	"context"
	"sync"

	"github.com/docdor/preview/internal/metrics"
)

// State is the load state of a Preview.
type State int

const (
	// StateUnloaded is the initial state; placeholders are shown.
	StateUnloaded State = iota
	// StateFailed means the single fetch did not succeed. It renders
	// exactly like StateUnloaded.
	StateFailed
	// StateLoaded means the fetch succeeded and real values are shown.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateFailed:
		return "failed"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Result is the outcome held by a Preview.
type Result struct {
	State   State
	Metrics *metrics.Metrics
	Err     error
}

// Preview is the dashboard of one mount. It fetches metrics at most once
// over its lifetime and drops results that arrive after it was disposed.
type Preview struct {
	fetcher  metrics.Fetcher
	doctorID string

	once sync.Once

	mu       sync.Mutex
	result   Result
	disposed bool
}

// NewPreview creates a Preview for doctorID.
func NewPreview(fetcher metrics.Fetcher, doctorID string) *Preview {
	return &Preview{
		fetcher:  fetcher,
		doctorID: doctorID,
	}
}

// DoctorID returns the identity the preview fetches metrics for.
func (p *Preview) DoctorID() string {
	return p.doctorID
}

// Load triggers the fetch on the first call and returns the current view.
// The bool reports whether this call moved the preview to StateLoaded.
// Later calls never fetch again. If ctx is done or the preview was
// disposed by the time the fetch returns, the result is discarded.
func (p *Preview) Load(ctx context.Context) (View, bool) {
	loaded := false

	p.once.Do(func() {
		if p.isDisposed() {
			return
		}

		m, err := p.fetcher.DoctorMetrics(ctx, p.doctorID)

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.disposed || ctx.Err() != nil {
			return
		}
		if err != nil {
			p.result = Result{State: StateFailed, Err: err}
			return
		}
		p.result = Result{State: StateLoaded, Metrics: m}
		loaded = true
	})

	return p.View(), loaded
}

// Dispose marks the preview as torn down. Results arriving afterwards are ignored.
func (p *Preview) Dispose() {
	p.mu.Lock()
	p.disposed = true
	p.mu.Unlock()
}

// Result returns the current outcome.
func (p *Preview) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// View derives the display values for the current state.
func (p *Preview) View() View {
	res := p.Result()
	if res.State != StateLoaded {
		return BuildView(nil)
	}
	return BuildView(res.Metrics)
}

func (p *Preview) isDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}
