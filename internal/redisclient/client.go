package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/raise_bid.lua
var raiseBidScript string

type Client struct {
	rdb         *redis.Client
	raiseScript *redis.Script
}

// NewClient creates a new Redis client with the bid script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		raiseScript: redis.NewScript(raiseBidScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func highBidKey(auctionID int64) string {
	return fmt.Sprintf("auction:%d:highbid", auctionID)
}

// RaiseHighBid raises the cached high bid for an auction using a Lua script,
// so concurrent writers can only move the cache upward. Returns true if the
// cache was raised. The database row remains the authoritative record; the
// cache only serves the read fast path.
func (c *Client) RaiseHighBid(ctx context.Context, auctionID, amount int64) (bool, error) {
	result, err := c.raiseScript.Run(ctx, c.rdb, []string{highBidKey(auctionID)}, amount).Result()
	if err != nil {
		return false, fmt.Errorf("raise bid script failed: %w", err)
	}

	raised, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return raised == 1, nil
}

// GetHighBid retrieves the cached high bid for an auction. The second return
// value reports whether the cache held a value.
func (c *Client) GetHighBid(ctx context.Context, auctionID int64) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, highBidKey(auctionID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	amount, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt high bid cache for auction %d: %w", auctionID, err)
	}
	return amount, true, nil
}

// ResetHighBid overwrites the cached high bid, used after a republish
func (c *Client) ResetHighBid(ctx context.Context, auctionID, amount int64) error {
	return c.rdb.Set(ctx, highBidKey(auctionID), amount, 0).Err()
}

// DeleteHighBid drops the cached high bid, used after an auction is removed
func (c *Client) DeleteHighBid(ctx context.Context, auctionID int64) error {
	return c.rdb.Del(ctx, highBidKey(auctionID)).Err()
}

// AcquireLock acquires a distributed lock. Reconciler passes take a lock per
// pass so a slow run is never overlapped by the next scheduled tick.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
