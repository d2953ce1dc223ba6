package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"metalwatch-service/internal/domain"
)

// AttemptStore keeps scored attempts in Redis lists.
// All attempts:     RPUSH quiz:attempts {attempt JSON}
// Per subject:      RPUSH quiz:attempts:subject:{subject} {attempt JSON}
// Both pushes run in one MULTI so readers never see half a write.
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, allAttemptsKey, data)
	pipe.RPush(ctx, subjectKey(attempt.Subject), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) ListAttemptsBySubject(ctx context.Context, subject string) ([]domain.QuizAttempt, error) {
	return s.list(ctx, subjectKey(subject))
}

// ListAttempts reads every attempt with a single LRANGE, which is a
// consistent snapshot of the list.
func (s *AttemptStore) ListAttempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	return s.list(ctx, allAttemptsKey)
}

func (s *AttemptStore) list(ctx context.Context, key string) ([]domain.QuizAttempt, error) {
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.QuizAttempt, 0, len(raw))
	for i, item := range raw {
		var a domain.QuizAttempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("%w at %s[%d]: %v", errCorruptAttempt, key, i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

const allAttemptsKey = "quiz:attempts"

var errCorruptAttempt = errors.New("corrupt attempt record")

func subjectKey(subject string) string {
	return "quiz:attempts:subject:" + subject
}
