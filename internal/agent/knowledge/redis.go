package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// RedisStore persists chunk records as JSON in a Redis list and serves
// searches from an in-process index loaded at open.
type RedisStore struct {
	rdb        redis.Cmdable
	collection string
	index      *Index
}

// OpenRedisStore loads any chunks already stored for the collection.
func OpenRedisStore(ctx context.Context, rdb redis.Cmdable, collection string) (*RedisStore, error) {
	s := &RedisStore{rdb: rdb, collection: collection, index: NewIndex()}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RedisStore) chunksKey() string {
	return fmt.Sprintf("knowledge:%s:chunks", s.collection)
}

func (s *RedisStore) load(ctx context.Context) error {
	key := s.chunksKey()
	rows, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load chunks from redis")
		return errx.WrapRedis(err)
	}

	chunks := make([]model.Chunk, 0, len(rows))
	for i, row := range rows {
		var c model.Chunk
		if err := json.Unmarshal([]byte(row), &c); err != nil {
			logx.Error().Err(err).Str("key", key).Int("index", i).Msg("failed to unmarshal chunk")
			return fmt.Errorf("unmarshal chunk at index %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}
	logx.Debug().Str("collection", s.collection).Int("chunks", len(chunks)).Msg("loaded knowledge from redis")
	return s.index.Add(ctx, chunks)
}

// Reset deletes the collection key and clears the index.
func (s *RedisStore) Reset(ctx context.Context) error {
	key := s.chunksKey()
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete chunks from redis")
		return errx.WrapRedis(err)
	}
	return s.index.Reset(ctx)
}

// Add appends chunk records and indexes them.
func (s *RedisStore) Add(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	values := make([]any, 0, len(chunks))
	for _, c := range chunks {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", c.ID, err)
		}
		values = append(values, b)
	}

	key := s.chunksKey()
	if err := s.rdb.RPush(ctx, key, values...).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push chunks to redis")
		return errx.WrapRedis(err)
	}
	return s.index.Add(ctx, chunks)
}

// Replace deletes and rewrites the collection list inside one MULTI/EXEC.
func (s *RedisStore) Replace(ctx context.Context, chunks []model.Chunk) error {
	values := make([]any, 0, len(chunks))
	for _, c := range chunks {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", c.ID, err)
		}
		values = append(values, b)
	}

	key := s.chunksKey()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to replace chunks in redis")
		return errx.WrapRedis(err)
	}
	return s.index.Replace(ctx, chunks)
}

// Search delegates to the in-process index.
func (s *RedisStore) Search(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	return s.index.Search(ctx, vector, k)
}

// Count reports the persisted list length.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	key := s.chunksKey()
	n, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.KnowledgeStore = (*RedisStore)(nil)
