package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"metalwatch-service/internal/domain"
)

// AttemptStore persists scored attempts in the quiz_attempts table.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

const attemptColumns = `id, subject, display_name, bank_id, bank_version, submitted_answers, answer_key,
	score, total, percentage, certificate_eligible, scored_at`

func (s *AttemptStore) SaveAttempt(ctx context.Context, a domain.QuizAttempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (`+attemptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Subject, a.DisplayName, a.BankID, a.BankVersion, a.SubmittedAnswers, a.AnswerKey,
		a.Report.Score, a.Report.Total, a.Report.Percentage, a.Report.CertificateEligible, a.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) ListAttemptsBySubject(ctx context.Context, subject string) ([]domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE subject = $1 ORDER BY seq`, subject)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return scanAttempts(rows)
}

func (s *AttemptStore) ListAttempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return scanAttempts(rows)
}

func scanAttempts(rows pgx.Rows) ([]domain.QuizAttempt, error) {
	defer rows.Close()
	out := make([]domain.QuizAttempt, 0)
	for rows.Next() {
		var a domain.QuizAttempt
		if err := rows.Scan(
			&a.ID, &a.Subject, &a.DisplayName, &a.BankID, &a.BankVersion, &a.SubmittedAnswers, &a.AnswerKey,
			&a.Report.Score, &a.Report.Total, &a.Report.Percentage, &a.Report.CertificateEligible, &a.ScoredAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Report.Wrong = a.Report.Total - a.Report.Score
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}
