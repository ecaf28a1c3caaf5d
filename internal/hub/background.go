package hub

import (
	"context"
	"log/slog"
	"time"
)

const janitorInterval = time.Minute

// runJanitor periodically closes rooms nobody has touched for the idle timeout.
// Their state stays in Redis and is loaded again on the next request.
func (h *Hub) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.evictIdleRooms(); n > 0 {
				slog.InfoContext(ctx, "Evicted idle rooms", "rooms.count", n)
			}
		}
	}
}

func (h *Hub) evictIdleRooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	evicted := 0
	for id, r := range h.rooms {
		if r.Idle(h.idleTimeout) {
			delete(h.rooms, id)
			r.Close()
			evicted++
		}
	}
	return evicted
}
