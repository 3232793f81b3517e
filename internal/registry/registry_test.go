package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"outpostlabs/outpost/internal/domain"
)

type fakeLastShown struct {
	value   string
	cleared int
}

func (f *fakeLastShown) SetLastShownServer(id string) error {
	f.value = id
	return nil
}

func (f *fakeLastShown) ClearLastShownServer() error {
	f.value = ""
	f.cleared++
	return nil
}

type fakeSink struct {
	last []ListItem
}

func (f *fakeSink) ServerListChanged(items []ListItem) { f.last = items }

func entry(id, name, provider string) *Entry {
	return &Entry{Server: &domain.Server{
		ID:       id,
		Name:     name,
		Provider: provider,
		Kind:     domain.KindManaged,
	}}
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, nil)

	for _, e := range []*Entry{entry("a", "alpha", "hetzner"), entry("b", "", "manual"), entry("c", "gamma", "hetzner")} {
		if err := r.Add(e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	want := []ListItem{
		{ID: "a", Name: "alpha", Provider: "hetzner", Synced: true},
		{ID: "b", Name: "", Provider: "manual", Synced: false},
		{ID: "c", Name: "gamma", Provider: "hetzner", Synced: true},
	}
	if diff := cmp.Diff(want, r.List()); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, sink.last); diff != "" {
		t.Errorf("sink not notified with full list (-want +got):\n%s", diff)
	}
}

func TestAdd_DuplicateID(t *testing.T) {
	r := New(nil, nil)
	if err := r.Add(entry("a", "alpha", "hetzner")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(entry("a", "other", "hetzner")); err == nil {
		t.Fatal("expected error on duplicate id")
	}
}

func TestRemove_LeavesListEmpty(t *testing.T) {
	r := New(nil, nil)
	if err := r.Add(entry("a", "alpha", "hetzner")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r.Remove("a")

	if got := r.List(); len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}
	if _, ok := r.Get("a"); ok {
		t.Error("expected server to be gone from the index")
	}
}

func TestRemove_ClearsLastShownOnlyForSelected(t *testing.T) {
	last := &fakeLastShown{}
	r := New(nil, last)
	if err := r.Add(entry("a", "alpha", "hetzner")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(entry("b", "beta", "hetzner")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r.Select("a")
	if last.value != "a" {
		t.Fatalf("expected last-shown to be persisted, got %q", last.value)
	}

	// Removing a non-selected server must not touch the pointer.
	r.Remove("b")
	if last.cleared != 0 || last.value != "a" {
		t.Errorf("expected last-shown untouched, got value=%q cleared=%d", last.value, last.cleared)
	}

	r.Remove("a")
	if last.cleared != 1 || last.value != "" {
		t.Errorf("expected last-shown cleared, got value=%q cleared=%d", last.value, last.cleared)
	}
	if r.Selected() != "" {
		t.Errorf("expected selection cleared, got %q", r.Selected())
	}
}

func TestUpdateEntry_RefreshesInPlace(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, nil)
	unsynced := entry("a", "", "hetzner")
	if err := r.Add(unsynced); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(entry("b", "beta", "hetzner")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	unsynced.Server.Name = "alpha"
	r.UpdateEntry("a")

	want := []ListItem{
		{ID: "a", Name: "alpha", Provider: "hetzner", Synced: true},
		{ID: "b", Name: "beta", Provider: "hetzner", Synced: true},
	}
	if diff := cmp.Diff(want, sink.last); diff != "" {
		t.Errorf("list mismatch after update (-want +got):\n%s", diff)
	}
}

func TestUpdateServer_MutatesUnderLockAndRefreshesList(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, nil)
	if err := r.Add(entry("a", "", "hetzner")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r.UpdateServer("a", func(srv *domain.Server) { srv.Name = "alpha" })

	var got string
	if !r.ReadServer("a", func(srv *domain.Server) { got = srv.Name }) {
		t.Fatal("expected server to be readable")
	}
	if got != "alpha" {
		t.Errorf("expected name %q, got %q", "alpha", got)
	}
	want := []ListItem{{ID: "a", Name: "alpha", Provider: "hetzner", Synced: true}}
	if diff := cmp.Diff(want, sink.last); diff != "" {
		t.Errorf("list mismatch after mutation (-want +got):\n%s", diff)
	}

	// Unknown ids are ignored on both paths.
	r.UpdateServer("zz", func(srv *domain.Server) { srv.Name = "ghost" })
	if r.ReadServer("zz", func(*domain.Server) {}) {
		t.Error("expected unknown id to be unreadable")
	}
}

// countingSink records every snapshot it is handed, in delivery order.
type countingSink struct {
	mu        sync.Mutex
	snapshots [][]ListItem
}

func (s *countingSink) ServerListChanged(items []ListItem) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, items)
	s.mu.Unlock()
}

func TestConcurrentAdds_NotifySnapshotsInMutationOrder(t *testing.T) {
	sink := &countingSink{}
	r := New(sink, nil)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Add(entry(fmt.Sprintf("s%02d", i), "", "hetzner")); err != nil {
				t.Errorf("Add failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.snapshots) != n {
		t.Fatalf("expected %d deliveries, got %d", n, len(sink.snapshots))
	}
	// Each add grows the list by one; a snapshot delivered out of order
	// would show up as a shrink.
	for i := 1; i < len(sink.snapshots); i++ {
		if len(sink.snapshots[i]) <= len(sink.snapshots[i-1]) {
			t.Fatalf("snapshot %d delivered out of order: %d items after %d",
				i, len(sink.snapshots[i]), len(sink.snapshots[i-1]))
		}
	}
	if got := len(sink.snapshots[n-1]); got != n {
		t.Errorf("expected final snapshot with %d items, got %d", n, got)
	}
}

func TestDisconnectProvider_RemovesMatchingServers(t *testing.T) {
	last := &fakeLastShown{}
	r := New(nil, last)
	for _, e := range []*Entry{
		entry("a", "alpha", "hetzner"),
		entry("m", "byhand", "manual"),
		entry("b", "beta", "hetzner"),
	} {
		if err := r.Add(e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	r.Select("b")

	r.DisconnectProvider("hetzner")

	want := []ListItem{{ID: "m", Name: "byhand", Provider: "manual", Synced: true}}
	if diff := cmp.Diff(want, r.List()); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if last.cleared != 1 {
		t.Errorf("expected last-shown cleared once (selected server removed), got %d", last.cleared)
	}
}
