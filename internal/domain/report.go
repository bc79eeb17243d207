package domain

import "time"

// EntryStatus tracks an entry through the per-run state machine:
// Pending → Resolving → Fetching → Verifying → Materialized, or → Failed /
// Skipped. Terminal states are never left within one run.
type EntryStatus string

const (
	StatusPending      EntryStatus = "pending"
	StatusResolving    EntryStatus = "resolving"
	StatusFetching     EntryStatus = "fetching"
	StatusVerifying    EntryStatus = "verifying"
	StatusMaterialized EntryStatus = "materialized"
	StatusSkipped      EntryStatus = "skipped"
	StatusFailed       EntryStatus = "failed"
)

// Terminal reports whether the status ends the entry's processing for this run.
func (s EntryStatus) Terminal() bool {
	return s == StatusMaterialized || s == StatusSkipped || s == StatusFailed
}

// EntryResult is the per-entry outcome recorded in a RunReport.
type EntryResult struct {
	Entry   ModEntry
	Status  EntryStatus
	Version *Version // resolved version, nil when resolution failed or was skipped
	Err     error    // terminal error for failed entries
}

// CategoryCounts aggregates outcomes for one category.
type CategoryCounts struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// RunReport summarizes one orchestrator run. A run always completes with a
// report; per-entry failures are recorded here, never silently dropped.
type RunReport struct {
	RunID      string
	Target     Target
	StartedAt  time.Time
	FinishedAt time.Time
	ByCategory map[Category]*CategoryCounts
	Entries    []EntryResult
}

// NewRunReport returns an empty report with category buckets initialized.
func NewRunReport(runID string, target Target) *RunReport {
	return &RunReport{
		RunID:     runID,
		Target:    target,
		StartedAt: time.Now(),
		ByCategory: map[Category]*CategoryCounts{
			CategoryServer: {},
			CategoryClient: {},
			CategoryShared: {},
		},
	}
}

// Record appends an entry result and updates the category counters.
func (r *RunReport) Record(res EntryResult) {
	r.Entries = append(r.Entries, res)
	c := r.ByCategory[res.Entry.Category]
	if c == nil {
		c = &CategoryCounts{}
		r.ByCategory[res.Entry.Category] = c
	}
	switch res.Status {
	case StatusMaterialized:
		c.Succeeded++
	case StatusSkipped:
		c.Skipped++
	case StatusFailed:
		c.Failed++
	}
}

// Failed returns the results that ended in StatusFailed.
func (r *RunReport) Failed() []EntryResult {
	var out []EntryResult
	for _, e := range r.Entries {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out
}

// FailedIn reports whether any entry of the given categories failed.
func (r *RunReport) FailedIn(categories ...Category) bool {
	for _, c := range categories {
		if counts := r.ByCategory[c]; counts != nil && counts.Failed > 0 {
			return true
		}
	}
	return false
}

// Totals sums the counters across categories.
func (r *RunReport) Totals() CategoryCounts {
	var t CategoryCounts
	for _, c := range r.ByCategory {
		t.Succeeded += c.Succeeded
		t.Skipped += c.Skipped
		t.Failed += c.Failed
	}
	return t
}
