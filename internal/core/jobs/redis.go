package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const statusTTL = 7 * 24 * time.Hour

// RedisStatusStore хранит статусы задач как JSON с TTL.
type RedisStatusStore struct {
	rdb redis.UniversalClient
}

func NewRedisStatusStore(rdb redis.UniversalClient) *RedisStatusStore {
	return &RedisStatusStore{rdb: rdb}
}

func statusKey(id string) string {
	return "catalog:job:" + id
}

func (s *RedisStatusStore) Save(ctx context.Context, job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, statusKey(job.ID), b, statusTTL).Err()
}

func (s *RedisStatusStore) Load(ctx context.Context, id string) (*Job, error) {
	b, err := s.rdb.Get(ctx, statusKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job status: %w", err)
	}
	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}
	return &job, nil
}

// Envelope: сообщение в очереди задач.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Producer ставит задачи в очередь и возвращает correlation id.
type Producer struct {
	rdb listPusher
	now func() time.Time
}

func NewProducer(rdb redis.UniversalClient) *Producer {
	return &Producer{rdb: rdb, now: time.Now}
}

func (p *Producer) Enqueue(ctx context.Context, queue, jobType string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode job payload: %w", err)
	}
	env := Envelope{ID: uuid.NewString(), Type: jobType, Payload: raw, EnqueuedAt: p.now().UTC()}
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	if err := p.rdb.LPush(ctx, queue, b).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return env.ID, nil
}
