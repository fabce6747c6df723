package memory

import (
	"encoding/json"
	"io"

	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/provider"
)

// EventRecord is the flat, round-trip-lossless representation of one
// event used by Dump/Restore.
type EventRecord struct {
	Value string  `json:"value"`
	At    float64 `json:"at"`
}

// UserSnapshot is one user's dumped state.
type UserSnapshot struct {
	Events   []EventRecord `json:"events"`
	LastRead float64       `json:"last_read"`
}

// Snapshot is a whole feed's dumped state, keyed by user ID.
type Snapshot map[string]UserSnapshot

// Dump captures every known user's state for the given keyspace. Users
// that were never touched in this process are absent from the result;
// this is a debugging and migration aid, not a durability mechanism.
func (p *Provider) Dump(ks provider.Keyspace) Snapshot {
	fs := p.feedFor(ks)

	fs.mu.RLock()
	userIDs := make([]string, 0, len(fs.users))
	for id := range fs.users {
		userIDs = append(userIDs, id)
	}
	fs.mu.RUnlock()

	snap := make(Snapshot, len(userIDs))
	for _, id := range userIDs {
		us := fs.userFor(id)
		us.mu.Lock()
		records := make([]EventRecord, 0, len(us.events))
		for _, e := range sortedEvents(us) {
			records = append(records, EventRecord{Value: e.Value(), At: e.At()})
		}
		snap[id] = UserSnapshot{Events: records, LastRead: us.lastRead}
		us.mu.Unlock()
	}
	return snap
}

// Restore replaces every user's state named in snap for the given
// keyspace. Users already present but absent from snap are left
// untouched; use Wipe first for an exact replace.
func (p *Provider) Restore(ks provider.Keyspace, snap Snapshot) {
	fs := p.feedFor(ks)
	for id, us := range snap {
		state := newUserState()
		for _, r := range us.Events {
			state.events[r.Value] = event.NewEvent(r.Value, r.At)
		}
		state.lastRead = us.LastRead

		fs.mu.Lock()
		fs.users[id] = state
		fs.mu.Unlock()
	}
}

// DumpTo writes a keyspace's snapshot as JSON to w.
func (p *Provider) DumpTo(w io.Writer, ks provider.Keyspace) error {
	return json.NewEncoder(w).Encode(p.Dump(ks))
}

// RestoreFrom reads a JSON snapshot from r and restores it into ks.
func (p *Provider) RestoreFrom(r io.Reader, ks provider.Keyspace) error {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	p.Restore(ks, snap)
	return nil
}
