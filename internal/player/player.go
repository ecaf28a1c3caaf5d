package player

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Player is one websocket connection of the human playing a game.
// A player may have several connections open on the same game.
type Player struct {
	ID   string
	Conn Connection

	writeMu sync.Mutex
}

// NewPlayer creates a new player.
func NewPlayer(id string, conn Connection) *Player {
	return &Player{ID: id, Conn: conn}
}

// Send writes a text frame. Connections allow only one concurrent writer.
func (p *Player) Send(data []byte) error {
	return p.write(websocket.TextMessage, data)
}

// Ping writes a ping control frame.
func (p *Player) Ping() error {
	return p.write(websocket.PingMessage, nil)
}

func (p *Player) write(messageType int, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.Conn.WriteMessage(messageType, data)
}
