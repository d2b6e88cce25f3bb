package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelsync/reelsync/internal/model"
)

// keyspace layout, one document per user spread over a handful of keys:
//
//	reelsync:user:{id}:watchlist   hash  movie id -> MovieRef JSON
//	reelsync:user:{id}:favorites   hash  movie id -> MovieRef JSON
//	reelsync:user:{id}:ratings     hash  movie id -> Rating JSON
//	reelsync:user:{id}:collections hash  collection id -> Collection JSON
//	reelsync:user:{id}:history     string  []int JSON
//	reelsync:user:{id}:comparison  string  []int JSON
//	reelsync:user:{id}:mood        string  Mood JSON
//	reelsync:user:{id}:meta        hash  migrated_at -> RFC3339
//
// HSET/HDEL give the set-union/set-difference semantics the migration
// relies on; retrying any operation converges to the same state.
const keyPrefix = "reelsync:user:"

// RedisStore implements Store against a Redis server.
type RedisStore struct {
	client *redis.Client
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func userKey(userID, field string) string {
	return keyPrefix + userID + ":" + field
}

// GetUserData implements Store. It assembles the aggregate from the
// per-field keys; a user with no keys at all yields nil.
func (r *RedisStore) GetUserData(ctx context.Context, userID string) (*model.UserData, error) {
	pipe := r.client.Pipeline()
	watchlist := pipe.HGetAll(ctx, userKey(userID, "watchlist"))
	favorites := pipe.HGetAll(ctx, userKey(userID, "favorites"))
	ratings := pipe.HGetAll(ctx, userKey(userID, "ratings"))
	collections := pipe.HGetAll(ctx, userKey(userID, "collections"))
	history := pipe.Get(ctx, userKey(userID, "history"))
	comparison := pipe.Get(ctx, userKey(userID, "comparison"))
	mood := pipe.Get(ctx, userKey(userID, "mood"))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch user data for %s: %w", userID, err)
	}

	u := model.New()
	empty := true

	for _, res := range []struct {
		cmd  *redis.MapStringStringCmd
		dest *[]model.MovieRef
	}{
		{watchlist, &u.Watchlist},
		{favorites, &u.Favorites},
	} {
		for _, raw := range res.cmd.Val() {
			var m model.MovieRef
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				continue
			}
			*res.dest = append(*res.dest, m)
			empty = false
		}
	}

	for field, raw := range ratings.Val() {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		var rt model.Rating
		if err := json.Unmarshal([]byte(raw), &rt); err != nil {
			continue
		}
		u.Ratings[id] = rt
		empty = false
	}

	for _, raw := range collections.Val() {
		var c model.Collection
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		u.Collections = append(u.Collections, c)
		empty = false
	}

	if raw, err := history.Result(); err == nil {
		if json.Unmarshal([]byte(raw), &u.ViewHistory) == nil {
			empty = false
		}
	}
	if raw, err := comparison.Result(); err == nil {
		var slots []int
		if json.Unmarshal([]byte(raw), &slots) == nil && len(slots) == model.ComparisonSlotCount {
			u.ComparisonSlots = slots
			empty = false
		}
	}
	if raw, err := mood.Result(); err == nil {
		var m model.Mood
		if json.Unmarshal([]byte(raw), &m) == nil {
			u.LastMood = &m
			empty = false
		}
	}

	if empty {
		return nil, nil
	}
	u.SetDefaults()
	return u, nil
}

func (r *RedisStore) hsetJSON(ctx context.Context, key, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", key, field, err)
	}
	if err := r.client.HSet(ctx, key, field, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", key, field, err)
	}
	return nil
}

func (r *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// AddWatchlistMovie implements Store.
func (r *RedisStore) AddWatchlistMovie(ctx context.Context, userID string, m model.MovieRef) error {
	return r.hsetJSON(ctx, userKey(userID, "watchlist"), strconv.Itoa(m.ID), m)
}

// RemoveWatchlistMovie implements Store.
func (r *RedisStore) RemoveWatchlistMovie(ctx context.Context, userID string, movieID int) error {
	if err := r.client.HDel(ctx, userKey(userID, "watchlist"), strconv.Itoa(movieID)).Err(); err != nil {
		return fmt.Errorf("failed to remove watchlist movie %d: %w", movieID, err)
	}
	return nil
}

// AddFavoriteMovie implements Store.
func (r *RedisStore) AddFavoriteMovie(ctx context.Context, userID string, m model.MovieRef) error {
	return r.hsetJSON(ctx, userKey(userID, "favorites"), strconv.Itoa(m.ID), m)
}

// RemoveFavoriteMovie implements Store.
func (r *RedisStore) RemoveFavoriteMovie(ctx context.Context, userID string, movieID int) error {
	if err := r.client.HDel(ctx, userKey(userID, "favorites"), strconv.Itoa(movieID)).Err(); err != nil {
		return fmt.Errorf("failed to remove favorite movie %d: %w", movieID, err)
	}
	return nil
}

// SetRating implements Store.
func (r *RedisStore) SetRating(ctx context.Context, userID string, movieID int, rt model.Rating) error {
	return r.hsetJSON(ctx, userKey(userID, "ratings"), strconv.Itoa(movieID), rt)
}

// RemoveRating implements Store.
func (r *RedisStore) RemoveRating(ctx context.Context, userID string, movieID int) error {
	if err := r.client.HDel(ctx, userKey(userID, "ratings"), strconv.Itoa(movieID)).Err(); err != nil {
		return fmt.Errorf("failed to remove rating for movie %d: %w", movieID, err)
	}
	return nil
}

// PutCollection implements Store.
func (r *RedisStore) PutCollection(ctx context.Context, userID string, c model.Collection) error {
	return r.hsetJSON(ctx, userKey(userID, "collections"), c.ID, c)
}

// DeleteCollection implements Store.
func (r *RedisStore) DeleteCollection(ctx context.Context, userID string, collectionID string) error {
	if err := r.client.HDel(ctx, userKey(userID, "collections"), collectionID).Err(); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collectionID, err)
	}
	return nil
}

// SetViewHistory implements Store.
func (r *RedisStore) SetViewHistory(ctx context.Context, userID string, history []int) error {
	return r.setJSON(ctx, userKey(userID, "history"), history)
}

// SetComparisonSlots implements Store.
func (r *RedisStore) SetComparisonSlots(ctx context.Context, userID string, slots []int) error {
	return r.setJSON(ctx, userKey(userID, "comparison"), slots)
}

// SetMood implements Store.
func (r *RedisStore) SetMood(ctx context.Context, userID string, mood model.Mood) error {
	return r.setJSON(ctx, userKey(userID, "mood"), mood)
}

// IsMigrated implements Store.
func (r *RedisStore) IsMigrated(ctx context.Context, userID string) (bool, error) {
	_, err := r.client.HGet(ctx, userKey(userID, "meta"), "migrated_at").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read migration marker for %s: %w", userID, err)
	}
	return true, nil
}

// SetMigrated implements Store.
func (r *RedisStore) SetMigrated(ctx context.Context, userID string) error {
	err := r.client.HSet(ctx, userKey(userID, "meta"), "migrated_at", time.Now().Format(time.RFC3339)).Err()
	if err != nil {
		return fmt.Errorf("failed to set migration marker for %s: %w", userID, err)
	}
	return nil
}

// DeleteUserData implements Store.
func (r *RedisStore) DeleteUserData(ctx context.Context, userID string) error {
	keys := []string{
		userKey(userID, "watchlist"),
		userKey(userID, "favorites"),
		userKey(userID, "ratings"),
		userKey(userID, "collections"),
		userKey(userID, "history"),
		userKey(userID, "comparison"),
		userKey(userID, "mood"),
		userKey(userID, "meta"),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user data for %s: %w", userID, err)
	}
	return nil
}
