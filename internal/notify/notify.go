// Package notify fans session status out over Redis pub/sub so any API
// instance holding the candidate's WebSocket can forward it.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const (
	TypeResultsReady  = "results_ready"
	TypeResultsFailed = "results_failed"
	TypeStatus        = "status"
)

func StatusChannel(sessionID string) string { return "session:" + sessionID + ":status" }

// Message is the JSON payload published on a session channel.
type Message struct {
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type Notifier interface {
	Publish(ctx context.Context, sessionID string, msg Message) error
}

type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Publish(ctx context.Context, sessionID string, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, StatusChannel(sessionID), b).Err()
}

// Subscribe returns the raw JSON payloads for a session until ctx ends.
func (n *RedisNotifier) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func() error) {
	ps := n.rdb.Subscribe(ctx, StatusChannel(sessionID))
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- []byte(m.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close
}
