package room

import (
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	"time"
)

// AddPlayer attaches a connection to the room. It reports false once the room is closed.
func (r *Room) AddPlayer(p *player.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.players = append(r.players, p)
	r.lastActivity = time.Now()
	return true
}

// RemovePlayer detaches a connection from the room.
func (r *Room) RemovePlayer(p *player.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.players {
		if existing == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	r.lastActivity = time.Now()
}

// Touch marks the room as in use so the idle janitor keeps it.
func (r *Room) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = time.Now()
}

// PlayerCount returns the number of open connections.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Idle reports whether the room has no connections and no activity for at least d.
func (r *Room) Idle(d time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0 && r.pending == nil && time.Since(r.lastActivity) >= d
}
