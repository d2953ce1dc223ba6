package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"metalwatch-service/internal/domain"
)

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	var (
		raw     []byte
		version int
	)
	err := l.pool.QueryRow(ctx, `SELECT version, data FROM question_banks WHERE id=$1`, bankID).Scan(&version, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
	}
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load question bank: %w", err)
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("unmarshal question bank: %w", err)
	}
	bank.ID = bankID
	bank.Version = version
	if err := bank.Validate(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("question bank %q: %w", bankID, err)
	}
	return bank, nil
}

// SaveBank upserts a bank, bumping its version.
func (l *BankLoader) SaveBank(ctx context.Context, bank domain.QuestionBank) (int, error) {
	if err := bank.Validate(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(bank)
	if err != nil {
		return 0, fmt.Errorf("marshal question bank: %w", err)
	}
	var version int
	err = l.pool.QueryRow(ctx, `
		INSERT INTO question_banks (id, version, data) VALUES ($1, 1, $2)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, version = question_banks.version + 1, updated_at = now()
		RETURNING version`, bank.ID, data).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save question bank: %w", err)
	}
	return version, nil
}
