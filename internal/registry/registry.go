// Package registry holds the in-memory index of all known servers,
// cloud-managed and manual, and keeps the externally visible server
// list synchronized with it.
package registry

import (
	"fmt"
	"sync"

	"outpostlabs/outpost/internal/domain"
)

// ListItem is the derived, externally observed list entry for one
// server. Order follows insertion order.
type ListItem struct {
	ID       string
	Name     string
	Provider string

	// Synced is true once the display name is known.
	Synced bool
}

// ListSink receives the full derived list whenever it changes. Calls
// are one-way and carry plain data.
type ListSink interface {
	ServerListChanged(items []ListItem)
}

// LastShownStore persists the "last displayed server" pointer across
// process restarts.
type LastShownStore interface {
	SetLastShownServer(id string) error
	ClearLastShownServer() error
}

// Entry pairs a server record with its management API client. Entries
// are owned exclusively by the registry; removal severs all further
// controller activity for that id. After insertion the Server record
// must only be mutated through UpdateServer and read through
// ReadServer, so concurrent readers never observe a half-written
// record.
type Entry struct {
	Server  *domain.Server
	Manager domain.Manager
}

// Registry is the id-keyed server index. The map and the ordered list
// are always consistent: every id in the map has exactly one list
// entry and vice versa.
type Registry struct {
	mu       sync.RWMutex
	servers  map[string]*Entry
	order    []string
	selected string

	// notifyMu serializes sink deliveries in mutation order; it is
	// claimed while mu is still held (see snapshotLocked).
	notifyMu sync.Mutex

	sink      ListSink
	lastShown LastShownStore
}

// New creates an empty registry. sink and lastShown may be nil.
func New(sink ListSink, lastShown LastShownStore) *Registry {
	return &Registry{
		servers:   make(map[string]*Entry),
		sink:      sink,
		lastShown: lastShown,
	}
}

// Add inserts a server. The id must not already be present.
func (r *Registry) Add(entry *Entry) error {
	if entry == nil || entry.Server == nil {
		return fmt.Errorf("registry: nil entry")
	}
	id := entry.Server.ID
	if id == "" {
		return fmt.Errorf("registry: empty server id")
	}

	r.mu.Lock()
	if _, exists := r.servers[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("registry: server %q already present", id)
	}
	r.servers[id] = entry
	r.order = append(r.order, id)
	flush := r.snapshotLocked()
	r.mu.Unlock()

	flush()
	return nil
}

// Remove deletes a server from the index and its list entry. When the
// removed server was the currently selected one, the selection and
// the persisted last-shown pointer are cleared.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	if _, exists := r.servers[id]; !exists {
		r.mu.Unlock()
		return
	}
	clearLastShown := r.removeLocked(id)
	flush := r.snapshotLocked()
	r.mu.Unlock()

	if clearLastShown && r.lastShown != nil {
		_ = r.lastShown.ClearLastShownServer()
	}
	flush()
}

// removeLocked deletes id from the map and order list. Reports
// whether the persisted last-shown pointer must be cleared.
func (r *Registry) removeLocked(id string) bool {
	delete(r.servers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.selected == id {
		r.selected = ""
		return true
	}
	return false
}

// UpdateEntry recomputes the derived list entry for id in place,
// preserving its position. Used after async name or health resolution
// completes.
func (r *Registry) UpdateEntry(id string) {
	r.mu.Lock()
	if _, exists := r.servers[id]; !exists {
		r.mu.Unlock()
		return
	}
	flush := r.snapshotLocked()
	r.mu.Unlock()

	flush()
}

// UpdateServer applies mutate to the server record for id while the
// index lock is held, then refreshes the derived list. Unknown ids
// are ignored. All post-insertion mutation of a Server goes through
// here; ReadServer and List never observe a partial update.
func (r *Registry) UpdateServer(id string, mutate func(srv *domain.Server)) {
	r.mu.Lock()
	entry, exists := r.servers[id]
	if !exists {
		r.mu.Unlock()
		return
	}
	mutate(entry.Server)
	flush := r.snapshotLocked()
	r.mu.Unlock()

	flush()
}

// ReadServer invokes read on the server record for id under the index
// lock. Reports whether id is present. The record must not escape the
// callback.
func (r *Registry) ReadServer(id string, read func(srv *domain.Server)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, exists := r.servers[id]
	if !exists {
		return false
	}
	read(entry.Server)
	return true
}

// DisconnectProvider removes every server whose provider tag matches.
// Used by account sign-out.
func (r *Registry) DisconnectProvider(providerTag string) {
	r.mu.Lock()
	var removed []string
	for _, id := range r.order {
		if r.servers[id].Server.Provider == providerTag {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		r.mu.Unlock()
		return
	}
	clearLastShown := false
	for _, id := range removed {
		if r.removeLocked(id) {
			clearLastShown = true
		}
	}
	flush := r.snapshotLocked()
	r.mu.Unlock()

	if clearLastShown && r.lastShown != nil {
		_ = r.lastShown.ClearLastShownServer()
	}
	flush()
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.servers[id]
	return entry, ok
}

// List returns the derived list in insertion order.
func (r *Registry) List() []ListItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deriveLocked()
}

// Select marks id as the currently displayed server and persists the
// last-shown pointer. Selecting an unknown id is a no-op.
func (r *Registry) Select(id string) {
	r.mu.Lock()
	if _, exists := r.servers[id]; !exists {
		r.mu.Unlock()
		return
	}
	r.selected = id
	r.mu.Unlock()

	if r.lastShown != nil {
		_ = r.lastShown.SetLastShownServer(id)
	}
}

// Selected returns the currently displayed server id, or "".
func (r *Registry) Selected() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// IsSelected reports whether id is the currently displayed server.
func (r *Registry) IsSelected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected == id
}

func (r *Registry) deriveLocked() []ListItem {
	items := make([]ListItem, 0, len(r.order))
	for _, id := range r.order {
		srv := r.servers[id].Server
		items = append(items, ListItem{
			ID:       srv.ID,
			Name:     srv.Name,
			Provider: srv.Provider,
			Synced:   srv.Synced(),
		})
	}
	return items
}

// snapshotLocked derives the current list and claims the notify lock
// while the index lock is still held, so two concurrent mutations
// cannot deliver their snapshots to the sink out of order. The caller
// releases the index lock, then invokes the returned flush.
func (r *Registry) snapshotLocked() func() {
	items := r.deriveLocked()
	r.notifyMu.Lock()
	return func() {
		if r.sink != nil {
			r.sink.ServerListChanged(items)
		}
		r.notifyMu.Unlock()
	}
}
