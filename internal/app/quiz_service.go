package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"metalwatch-service/internal/domain"
	"metalwatch-service/internal/scoring"
)

// AttemptStore persists scored attempts. List methods return snapshots in
// the order attempts were saved.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, attempt domain.QuizAttempt) error
	ListAttemptsBySubject(ctx context.Context, subject string) ([]domain.QuizAttempt, error)
	ListAttempts(ctx context.Context) ([]domain.QuizAttempt, error)
}

// QuestionBankRepository loads the canonical question bank (from cache/backing store).
type QuestionBankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// QuizService contains the quiz use cases.
type QuizService struct {
	bankID   string
	banks    QuestionBankRepository
	attempts AttemptStore
	events   EventPublisher
	hub      *LeaderboardHub
	// pubMu orders snapshot computation with its publication so
	// subscribers never receive an older board after a newer one.
	pubMu sync.Mutex
	limit int
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() string
}

// QuizOptions tunes a QuizService; zero values select defaults.
type QuizOptions struct {
	BankID           string
	LeaderboardLimit int
	Events           EventPublisher
	Logger           logrus.FieldLogger
}

func NewQuizService(banks QuestionBankRepository, attempts AttemptStore, opts QuizOptions) *QuizService {
	if opts.BankID == "" {
		opts.BankID = DefaultBankID
	}
	if opts.LeaderboardLimit <= 0 {
		opts.LeaderboardLimit = scoring.DefaultLeaderboardLimit
	}
	if opts.Events == nil {
		opts.Events = NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &QuizService{
		bankID:   opts.BankID,
		banks:    banks,
		attempts: attempts,
		events:   opts.Events,
		hub:      NewLeaderboardHub(),
		limit:    opts.LeaderboardLimit,
		log:      opts.Logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// DefaultBankID names the question bank used when none is configured.
const DefaultBankID = "pollution-basics"

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// Questions returns the canonical question bank.
func (s *QuizService) Questions(ctx context.Context) (domain.QuestionBank, error) {
	return s.banks.GetBank(ctx, s.bankID)
}

// Submit scores answers against the bank loaded for this call, stores the
// attempt and pushes a fresh leaderboard to subscribers.
func (s *QuizService) Submit(ctx context.Context, subject, displayName string, answers []string) (domain.QuizAttempt, error) {
	bank, err := s.banks.GetBank(ctx, s.bankID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}

	attempt, err := scoring.NewAttempt(bank, subject, displayName, answers, s.now().UTC())
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	attempt.ID = s.newID()

	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return domain.QuizAttempt{}, err
	}

	entry := s.log.WithFields(logrus.Fields{"subject": subject, "attempt_id": attempt.ID})
	entry.WithFields(logrus.Fields{
		"score":      attempt.Report.Score,
		"total":      attempt.Report.Total,
		"percentage": attempt.Report.Percentage,
	}).Info("quiz attempt scored")

	if err := s.events.PublishAttempt(ctx, domain.AttemptScored{
		AttemptID:   attempt.ID,
		Subject:     attempt.Subject,
		DisplayName: attempt.DisplayName,
		Report:      attempt.Report,
		ScoredAt:    attempt.ScoredAt,
	}); err != nil {
		entry.WithError(err).Warn("publish attempt event failed")
	}

	s.pubMu.Lock()
	if lb, err := s.Leaderboard(ctx, s.limit); err == nil {
		s.hub.Publish(lb)
	} else {
		entry.WithError(err).Warn("leaderboard refresh failed")
	}
	s.pubMu.Unlock()
	return attempt, nil
}

// History returns the subject's attempts, newest first.
func (s *QuizService) History(ctx context.Context, subject string) ([]domain.QuizAttempt, error) {
	attempts, err := s.attempts.ListAttemptsBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(attempts)-1; i < j; i, j = i+1, j-1 {
		attempts[i], attempts[j] = attempts[j], attempts[i]
	}
	return attempts, nil
}

// Leaderboard ranks subjects over a fresh snapshot of every attempt.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	attempts, err := s.attempts.ListAttempts(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if limit <= 0 {
		limit = s.limit
	}
	return domain.Leaderboard{
		Entries:   scoring.Rank(attempts, limit),
		UpdatedAt: s.now().UTC(),
	}, nil
}

// Subscribe returns a channel that receives the current leaderboard followed
// by one update per scored attempt. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	initial, err := s.Leaderboard(ctx, s.limit)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(initial)
	return ch, cancel, nil
}
