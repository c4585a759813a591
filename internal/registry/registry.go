// Package registry tracks which live connection belongs to which identity
// and which rooms it has joined. It is an explicit object rather than
// ambient module state so every test can construct a clean slate; the
// cross-process half of presence lives in the Redis presence repository.
package registry

import "sync"

// Member is one connection's room membership entry.
type Member struct {
	ConnID   string
	Username string
}

// Registry is the in-memory connection/room map. Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	// roomID -> connID -> username
	rooms map[string]map[string]string
	// connID -> set of roomIDs
	memberships map[string]map[string]struct{}
	// connID -> username
	idents map[string]string
}

func New() *Registry {
	return &Registry{
		rooms:       make(map[string]map[string]string),
		memberships: make(map[string]map[string]struct{}),
		idents:      make(map[string]string),
	}
}

// Join records the connection under the room, creating the room implicitly,
// and returns the room's full member list including the new connection.
// Joining a room twice is an idempotent upsert.
func (r *Registry) Join(roomID, connID, username string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(map[string]string)
	}
	r.rooms[roomID][connID] = username

	if _, ok := r.memberships[connID]; !ok {
		r.memberships[connID] = make(map[string]struct{})
	}
	r.memberships[connID][roomID] = struct{}{}
	r.idents[connID] = username

	return r.membersLocked(roomID)
}

// Members returns the current member list for the room. An unknown room has
// zero members, never an error.
func (r *Registry) Members(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membersLocked(roomID)
}

func (r *Registry) membersLocked(roomID string) []Member {
	conns := r.rooms[roomID]
	members := make([]Member, 0, len(conns))
	for connID, username := range conns {
		members = append(members, Member{ConnID: connID, Username: username})
	}
	return members
}

// Remove drops the connection from every room it belonged to and returns the
// set of rooms that were affected, for departure notification.
func (r *Registry) Remove(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomSet := r.memberships[connID]
	affected := make([]string, 0, len(roomSet))
	for roomID := range roomSet {
		if conns, ok := r.rooms[roomID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.rooms, roomID)
			}
		}
		affected = append(affected, roomID)
	}
	delete(r.memberships, connID)
	delete(r.idents, connID)
	return affected
}

// Username resolves a connection's display identity.
func (r *Registry) Username(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.idents[connID]
	return username, ok
}

// Rooms returns the rooms a connection currently belongs to.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomSet := r.memberships[connID]
	rooms := make([]string, 0, len(roomSet))
	for roomID := range roomSet {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// ActiveRoomIDs lists every room with at least one live connection.
func (r *Registry) ActiveRoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for roomID := range r.rooms {
		ids = append(ids, roomID)
	}
	return ids
}
