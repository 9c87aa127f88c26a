package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "leaderboard:points:"
	namesKey  = "leaderboard:names"
	keepFor   = 8 * 7 * 24 * time.Hour
)

// RedisBoard keeps one sorted set per week
type RedisBoard struct {
	client *redis.Client
}

// NewRedisBoard connects to addr and verifies the connection
func NewRedisBoard(ctx context.Context, addr, password string, db int) (*RedisBoard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBoard{client: client}, nil
}

func weekSetKey(at time.Time) string {
	return keyPrefix + WeekKey(at)
}

// Add increments the user's score for the week of at
func (b *RedisBoard) Add(ctx context.Context, userID int64, name string, points int, at time.Time) error {
	if points <= 0 {
		return nil
	}
	key := weekSetKey(at)
	member := strconv.FormatInt(userID, 10)

	pipe := b.client.TxPipeline()
	pipe.ZIncrBy(ctx, key, float64(points), member)
	pipe.Expire(ctx, key, keepFor)
	pipe.HSet(ctx, namesKey, member, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add leaderboard points: %w", err)
	}
	return nil
}

// Top returns the highest scores of the week of at
func (b *RedisBoard) Top(ctx context.Context, at time.Time, limit int) ([]Entry, error) {
	zs, err := b.client.ZRevRangeWithScores(ctx, weekSetKey(at), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if len(zs) == 0 {
		return []Entry{}, nil
	}

	members := make([]string, len(zs))
	for i, z := range zs {
		members[i], _ = z.Member.(string)
	}
	names, err := b.client.HMGet(ctx, namesKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard names: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		id, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			continue
		}
		e := Entry{UserID: id, Points: int(z.Score)}
		if i < len(names) {
			e.Name, _ = names[i].(string)
		}
		entries = append(entries, e)
	}
	return rank(entries), nil
}

// Close releases the connection pool
func (b *RedisBoard) Close() error {
	return b.client.Close()
}
