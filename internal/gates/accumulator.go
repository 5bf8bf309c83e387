package gates

import (
	"sync"

	"github.com/wonny/xray/internal/contracts"
)

// Accumulator folds per-phase quality results into one pipeline-wide
// DataQuality. Safe for concurrent use; phase workers report issues
// as they finish.
type Accumulator struct {
	mu      sync.Mutex
	quality *contracts.DataQuality
}

// NewAccumulator starts a fresh run at score 1.0
func NewAccumulator() *Accumulator {
	return &Accumulator{quality: contracts.NewDataQuality()}
}

// Report records a batch of issues from one gate invocation
func (a *Accumulator) Report(issues []contracts.QualityIssue) {
	if len(issues) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quality.AddAll(issues)
}

// Snapshot returns a copy of the accumulated quality state
func (a *Accumulator) Snapshot() contracts.DataQuality {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := contracts.DataQuality{Score: a.quality.Score}
	out.Issues = append(out.Issues, a.quality.Issues...)
	return out
}

// IsTrustworthy reports whether the accumulated score meets the
// trust threshold.
func (a *Accumulator) IsTrustworthy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quality.IsTrustworthy()
}
