package monitor

import "sync"

// Store holds the latest Snapshot per host ID. Stored snapshots are never
// modified, so readers may keep the pointers they get.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]*Snapshot)}
}

// Get returns the snapshot for a host.
func (s *Store) Get(id string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	return snap, ok
}

// All returns a copy of the host ID to snapshot map.
func (s *Store) All() map[string]*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Snapshot, len(s.snapshots))
	for id, snap := range s.snapshots {
		out[id] = snap
	}
	return out
}

// Set replaces the snapshot for snap.HostID.
func (s *Store) Set(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.HostID] = snap
}

// Delete drops a host's snapshot.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
}

// Len returns the number of hosts with a snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
