package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"wrapped rate limited", fmt.Errorf("resolve: %w", ErrRateLimited), true},
		{"transport", &TransportError{Op: "search", Err: errors.New("eof")}, true},
		{"wrapped transport", fmt.Errorf("download: %w", &TransportError{Op: "download", Err: errors.New("reset")}), true},
		{"not found", ErrNotFound, false},
		{"no version", ErrNoVersion, false},
		{"integrity", ErrIntegrity, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("%s: Retryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReportStateMachine(t *testing.T) {
	for _, s := range []EntryStatus{StatusMaterialized, StatusSkipped, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []EntryStatus{StatusPending, StatusResolving, StatusFetching, StatusVerifying} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestRunReportCounts(t *testing.T) {
	r := NewRunReport("run-1", Target{GameVersion: "1.21.5", Loader: "fabric"})
	r.Record(EntryResult{Entry: ModEntry{Category: CategoryServer, Filename: "a.jar"}, Status: StatusMaterialized})
	r.Record(EntryResult{Entry: ModEntry{Category: CategoryClient, Filename: "b.jar"}, Status: StatusFailed, Err: ErrNoVersion})
	r.Record(EntryResult{Entry: ModEntry{Category: CategoryShared, Filename: "c.jar"}, Status: StatusSkipped})

	totals := r.Totals()
	if totals.Succeeded != 1 || totals.Skipped != 1 || totals.Failed != 1 {
		t.Errorf("Totals = %+v, want 1/1/1", totals)
	}
	if !r.FailedIn(CategoryClient) {
		t.Error("FailedIn(client) should be true")
	}
	if r.FailedIn(CategoryServer, CategoryShared) {
		t.Error("FailedIn(server, shared) should be false")
	}
	if got := r.Failed(); len(got) != 1 || got[0].Entry.Filename != "b.jar" {
		t.Errorf("Failed() = %v, want b.jar only", got)
	}
}
