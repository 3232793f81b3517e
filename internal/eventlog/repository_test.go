package eventlog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func tempRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outpost.db")
	r, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSave_AssignsDefaults(t *testing.T) {
	r := tempRepo(t)

	e := &Event{Component: "console", Message: "signed in"}
	if err := r.Save(e); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if e.ID == 0 {
		t.Error("expected assigned id")
	}
	if e.Level != LevelInfo {
		t.Errorf("expected default level %q, got %q", LevelInfo, e.Level)
	}
	if e.Timestamp.IsZero() {
		t.Error("expected assigned timestamp")
	}
}

func TestList_NewestFirst(t *testing.T) {
	r := tempRepo(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, msg := range []string{"first", "second", "third"} {
		err := r.Save(&Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Component: "lifecycle",
			ServerID:  "s1",
			Message:   msg,
		})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	events, err := r.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Message != "third" || events[1].Message != "second" {
		t.Errorf("expected newest first, got %q then %q", events[0].Message, events[1].Message)
	}
}

func TestPrune_RemovesOldEvents(t *testing.T) {
	r := tempRepo(t)

	old := &Event{Timestamp: time.Now().UTC().Add(-48 * time.Hour), Component: "usage", Message: "old"}
	recent := &Event{Component: "usage", Message: "recent"}
	if err := r.Save(old); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := r.Save(recent); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed, err := r.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned event, got %d", removed)
	}

	events, err := r.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 1 || events[0].Message != "recent" {
		t.Errorf("expected only the recent event to survive, got %+v", events)
	}
}

func TestReporter_MirrorsUnexpectedErrors(t *testing.T) {
	r := tempRepo(t)
	rep := NewReporter(r, nil)

	rep.Event("console", "s1", "server removed")
	rep.ReportUnexpected("usage", errTest)

	events, err := r.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	var sawError bool
	for _, e := range events {
		if e.Level == LevelError && e.Detail == errTest.Error() {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected the unexpected error recorded with detail")
	}
}

var errTest = errors.New("usage fetch exploded")
