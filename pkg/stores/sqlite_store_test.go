package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestBeginAndFinishRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Now()
	if err := s.BeginRun(ctx, "run-1", "sshbot", "/opt/sshbot", started); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != RunStatusRunning {
		t.Errorf("status = %s, want running", run.Status)
	}
	if run.UnitName != "sshbot" {
		t.Errorf("unit_name = %s, want sshbot", run.UnitName)
	}

	if err := s.FinishRun(ctx, "run-1", string(RunStatusSucceeded), "", time.Now()); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun after finish: %v", err)
	}
	if run.Status != RunStatusSucceeded {
		t.Errorf("status = %s, want succeeded", run.Status)
	}
	if run.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if run.Error != nil {
		t.Errorf("expected nil error, got %q", *run.Error)
	}
}

func TestFinishRunWithError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-2", "sshbot", "/opt/sshbot", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.FinishRun(ctx, "run-2", string(RunStatusFailed), "step artifact failed", time.Now()); err != nil {
		t.Fatal(err)
	}

	run, err := s.GetRun(ctx, "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if run.Error == nil || *run.Error != "step artifact failed" {
		t.Errorf("error = %v, want 'step artifact failed'", run.Error)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.FinishRun(context.Background(), "ghost", string(RunStatusFailed), "", time.Now())
	if err == nil {
		t.Error("expected error finishing unknown run")
	}
}

func TestRecordAndListStepEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-3", "sshbot", "/opt/sshbot", time.Now()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	steps := []struct {
		step   string
		status string
		err    error
	}{
		{"preflight", "succeeded", nil},
		{"packages", "succeeded", nil},
		{"artifact", "failed", errors.New("artifact is empty")},
	}
	for _, st := range steps {
		if err := s.RecordStep(ctx, "run-3", st.step, st.status, st.err, start, start.Add(50*time.Millisecond)); err != nil {
			t.Fatalf("RecordStep(%s): %v", st.step, err)
		}
	}

	events, err := s.ListStepEvents(ctx, "run-3")
	if err != nil {
		t.Fatalf("ListStepEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Step != "preflight" || events[2].Step != "artifact" {
		t.Errorf("events out of order: %v, %v", events[0].Step, events[2].Step)
	}
	if events[2].Error == nil || *events[2].Error != "artifact is empty" {
		t.Errorf("expected recorded step error, got %v", events[2].Error)
	}
	if events[0].DurationMS != 50 {
		t.Errorf("duration_ms = %d, want 50", events[0].DurationMS)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.BeginRun(ctx, id, "sshbot", "/opt/sshbot", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("order = [%s %s], want [new mid]", runs[0].ID, runs[1].ID)
	}
}
