package player

import (
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []int
}

func (c *recordingConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, messageType)
	return nil
}

func (c *recordingConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (c *recordingConn) Close() error                      { return nil }

func TestPlayer_Writes(t *testing.T) {
	conn := &recordingConn{}
	p := NewPlayer("p1", conn)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Send([]byte("{}")))
		}()
	}
	wg.Wait()
	assert.NoError(t, p.Ping())

	assert.Len(t, conn.frames, 11)
	assert.Equal(t, websocket.PingMessage, conn.frames[10])
	assert.Equal(t, websocket.TextMessage, conn.frames[0])
}
