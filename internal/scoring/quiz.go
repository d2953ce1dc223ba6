// Package scoring grades quiz submissions and ranks subjects by their best
// attempt.
package scoring

import (
	"time"

	"metalwatch-service/internal/domain"
)

// CertificateThreshold is the minimum percentage for certificate eligibility.
const CertificateThreshold = 70.0

// Score compares submitted answers with the answer key position by position.
// Comparison is exact; there is no partial credit or case folding.
func Score(submitted, key []string) (domain.ScoreReport, error) {
	if len(key) == 0 {
		return domain.ScoreReport{}, domain.Invalid("answerKey", "must not be empty")
	}
	if len(submitted) != len(key) {
		return domain.ScoreReport{}, domain.Invalid("answers", "expected %d answers, got %d", len(key), len(submitted))
	}

	score := 0
	for i := range key {
		if submitted[i] == key[i] {
			score++
		}
	}
	total := len(key)
	percentage := 100 * float64(score) / float64(total)
	return domain.ScoreReport{
		Score:               score,
		Total:               total,
		Wrong:               total - score,
		Percentage:          percentage,
		CertificateEligible: percentage >= CertificateThreshold,
	}, nil
}

// NewAttempt scores answers against the bank and snapshots the answer key
// into the resulting attempt. ID is left for the caller to assign.
func NewAttempt(bank domain.QuestionBank, subject, displayName string, answers []string, scoredAt time.Time) (domain.QuizAttempt, error) {
	if subject == "" {
		return domain.QuizAttempt{}, domain.Invalid("subject", "must not be empty")
	}
	key := bank.AnswerKey()
	report, err := Score(answers, key)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	return domain.QuizAttempt{
		Subject:          subject,
		DisplayName:      displayName,
		BankID:           bank.ID,
		BankVersion:      bank.Version,
		SubmittedAnswers: append([]string(nil), answers...),
		AnswerKey:        key,
		Report:           report,
		ScoredAt:         scoredAt,
	}, nil
}
