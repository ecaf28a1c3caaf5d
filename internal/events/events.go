package events

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeGameStarted  = "game_started"
	TypeGameFinished = "game_finished"
	TypeGameReset    = "game_reset"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// GameStartedPayload is the payload for the "game_started" event.
type GameStartedPayload struct {
	GameID     string          `json:"game_id"`
	PlayerID   string          `json:"player_id"`
	PlayerMark game.PlayerMark `json:"player_mark"`
	Difficulty game.Difficulty `json:"difficulty"`
}

// GameFinishedPayload is the payload for the "game_finished" event.
// ResultID is unique per finished game so that every subscriber can record it idempotently.
type GameFinishedPayload struct {
	ResultID   string          `json:"result_id"`
	GameID     string          `json:"game_id"`
	PlayerID   string          `json:"player_id"`
	PlayerMark game.PlayerMark `json:"player_mark"`
	Difficulty game.Difficulty `json:"difficulty"`
	Winner     game.PlayerMark `json:"winner"`
	Draw       bool            `json:"draw"`
	Moves      int             `json:"moves"`
}

// GameResetPayload is the payload for the "game_reset" event.
type GameResetPayload struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

// New wraps payload into an Event of the given type.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

//go:generate mockgen -source=events.go -destination=mocks/publisher_mock.go -package=mocks

// Publisher sends events to every interested subscriber.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type redisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a Publisher that writes to EventsChannel.
func NewRedisPublisher(rdb *redis.Client) Publisher {
	return &redisPublisher{rdb: rdb}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}
