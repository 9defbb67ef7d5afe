package voting

import (
	"sync"
)

// Directory tracks which connection belongs to which participant. The
// primary username→connection mapping lives inside each session; the
// directory adds the reverse connection→room index needed on disconnect,
// where the transport only knows the connection ID. The index is updated
// in lockstep with every add and remove so disconnect handling never has
// to scan all sessions.
type Directory struct {
	registry *Registry

	mu    sync.RWMutex
	rooms map[string]string // connection ID -> room ID
}

// NewDirectory creates a participant directory over the given registry.
func NewDirectory(registry *Registry) *Directory {
	return &Directory{
		registry: registry,
		rooms:    make(map[string]string),
	}
}

// AddOrReplace registers username in roomID under connectionID. A rejoin
// under the same username replaces the previous connection mapping and
// keeps any vote locked in the current round.
func (d *Directory) AddOrReplace(roomID, username, connectionID string) State {
	session := d.registry.GetOrCreate(roomID)
	state, replaced := session.AddParticipant(username, connectionID)

	d.mu.Lock()
	if replaced != "" && replaced != connectionID {
		delete(d.rooms, replaced)
	}
	d.rooms[connectionID] = roomID
	d.mu.Unlock()

	return state
}

// RemoveByUsername removes username from roomID. It reports whether the
// participant was present.
func (d *Directory) RemoveByUsername(roomID, username string) (State, bool) {
	session, ok := d.registry.Get(roomID)
	if !ok {
		return State{}, false
	}
	state, connectionID, removed := session.RemoveParticipant(username)
	if removed {
		d.mu.Lock()
		delete(d.rooms, connectionID)
		d.mu.Unlock()
	}
	return state, removed
}

// RemoveByConnection removes whichever participant owns connectionID in
// roomID, returning their username.
func (d *Directory) RemoveByConnection(roomID, connectionID string) (string, State, bool) {
	session, ok := d.registry.Get(roomID)
	if !ok {
		return "", State{}, false
	}
	username, state, removed := session.RemoveByConnection(connectionID)
	if removed {
		d.mu.Lock()
		delete(d.rooms, connectionID)
		d.mu.Unlock()
	}
	return username, state, removed
}

// UsernameByConnection resolves the caller's identity within a room so
// clients do not repeat their username on every call.
func (d *Directory) UsernameByConnection(roomID, connectionID string) (string, bool) {
	session, ok := d.registry.Get(roomID)
	if !ok {
		return "", false
	}
	return session.UsernameByConnection(connectionID)
}

// RoomByConnection is the reverse lookup used on disconnect: which room,
// if any, does this connection belong to.
func (d *Directory) RoomByConnection(connectionID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	roomID, ok := d.rooms[connectionID]
	return roomID, ok
}
