// Package cache keeps a short-lived per-event copy of the room list in
// Redis so the rooms board can be polled cheaply. Every mutation of a
// room invalidates its event's entry. The cache is optional: with no
// client configured every read is a miss and every write a no-op.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomListTTL bounds staleness when an invalidation is lost.
const RoomListTTL = time.Minute

var Client *redis.Client

// Connect initializes the Redis client from a URL such as
// redis://localhost:6379/0.
func Connect(redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return err
	}
	Client = redis.NewClient(opts)
	return Client.Ping(context.Background()).Err()
}

func roomListKey(eventID uint) string {
	return fmt.Sprintf("rooms:event:%d", eventID)
}

// GetRoomList loads the cached room list for the event into target.
// Returns false on a miss.
func GetRoomList(ctx context.Context, eventID uint, target interface{}) (bool, error) {
	if Client == nil {
		return false, nil
	}
	cached, err := Client.Get(ctx, roomListKey(eventID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(cached), target); err != nil {
		return false, err
	}
	return true, nil
}

// SetRoomList stores the room list for the event.
func SetRoomList(ctx context.Context, eventID uint, value interface{}) error {
	if Client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Client.Set(ctx, roomListKey(eventID), data, RoomListTTL).Err()
}

// InvalidateRoomList drops the cached room list for the event.
func InvalidateRoomList(ctx context.Context, eventID uint) error {
	if Client == nil {
		return nil
	}
	return Client.Del(ctx, roomListKey(eventID)).Err()
}
