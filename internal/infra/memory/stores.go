package memory

import (
	"context"
	"sync"

	"metalwatch-service/internal/domain"
)

// SampleStore is an in-memory implementation of app.SampleStore.
type SampleStore struct {
	mu      sync.RWMutex
	samples []domain.Sample
}

func NewSampleStore() *SampleStore {
	return &SampleStore{}
}

func (s *SampleStore) SaveSample(_ context.Context, sample domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *SampleStore) ListSamplesByOwner(_ context.Context, owner string) ([]domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sample, 0)
	for _, sample := range s.samples {
		if sample.Owner == owner {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *SampleStore) ListSamples(_ context.Context) ([]domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Sample(nil), s.samples...), nil
}

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []domain.QuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{}
}

func (s *AttemptStore) SaveAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *AttemptStore) ListAttemptsBySubject(_ context.Context, subject string) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, a := range s.attempts {
		if a.Subject == subject {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AttemptStore) ListAttempts(_ context.Context) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizAttempt(nil), s.attempts...), nil
}
