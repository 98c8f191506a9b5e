package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	conversationKeyPattern = "conversation:state:%s"
	conversationScanMatch  = "conversation:state:*"
	scanBatchCount         = 100
)

// RedisStore persists conversations as JSON documents in Redis.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore initializes a Redis-backed Store. A zero ttl keeps keys until the cleaner removes them.
func NewRedisStore(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate loads the conversation or stores a new one in language selection.
func (s *RedisStore) GetOrCreate(ctx context.Context, identity string) (*Conversation, error) {
	conv, err := s.get(ctx, identity)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Error("failed to get conversation from redis", "identity", identity, "error", err)
		return nil, err
	}

	conv = NewConversation(identity, s.now())
	if err := s.Save(ctx, conv); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// Another turn created it first.
			return s.get(ctx, identity)
		}
		return nil, err
	}

	s.log.Info("conversation created", "identity", identity)
	return conv, nil
}

// Save performs a compare-and-set on Version using WATCH/MULTI.
func (s *RedisStore) Save(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.Identity == "" {
		return fmt.Errorf("save conversation: missing identity")
	}

	key := conversationKey(conv.Identity)
	next := conv.Clone()
	next.Version++
	next.LastActivity = s.now()

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != conv.Version {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrVersionConflict):
		s.log.Warn("conversation version conflict", "identity", conv.Identity, "version", conv.Version)
		return ErrVersionConflict
	default:
		s.log.Error("failed to save conversation in redis", "identity", conv.Identity, "error", err)
		return err
	}

	conv.Version = next.Version
	conv.LastActivity = next.LastActivity
	return nil
}

// Clear removes the stored conversation.
func (s *RedisStore) Clear(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, conversationKey(identity)).Err(); err != nil {
		s.log.Error("failed to clear conversation", "identity", identity, "error", err)
		return err
	}

	return nil
}

// GetAll retrieves every stored conversation by scanning keys.
func (s *RedisStore) GetAll(ctx context.Context) ([]*Conversation, error) {
	var (
		cursor uint64
		result []*Conversation
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, conversationScanMatch, scanBatchCount).Result()
		if err != nil {
			s.log.Error("failed to scan conversations", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch conversation", "key", key, "error", err)
				return nil, err
			}

			var conv Conversation
			if err := json.Unmarshal(data, &conv); err != nil {
				s.log.Error("failed to decode conversation", "key", key, "error", err)
				continue
			}

			result = append(result, &conv)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func (s *RedisStore) get(ctx context.Context, identity string) (*Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(identity)).Bytes()
	if err != nil {
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", identity, err)
	}

	return &conv, nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("decode stored version: %w", err)
	}

	return head.Version, nil
}

func conversationKey(identity string) string {
	return fmt.Sprintf(conversationKeyPattern, identity)
}
