package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"metalwatch-service/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(sampleBank())}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), "bank-1"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetBank(context.Background(), "bank-1"); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	repo.Invalidate("bank-1")
	if _, err := repo.GetBank(context.Background(), "bank-1"); err != nil {
		t.Fatalf("get bank 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(sampleBank())}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetBank(context.Background(), "bank-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetBank(context.Background(), "bank-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestStaticBankLoaderUnknown(t *testing.T) {
	_, err := NewStaticBankLoader().LoadBank(context.Background(), "nope")
	if !errors.Is(err, domain.ErrQuestionBankNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFileBankLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.yaml")
	content := `banks:
  - id: bank-1
    version: 3
    questions:
      - id: q1
        prompt: "PLI < 1 means?"
        options: ["Safe", "Danger", "Critical"]
        correct_option: "Safe"
  - id: broken
    questions:
      - id: q1
        options: ["a"]
        correct_option: "b"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loader := NewFileBankLoader(path)

	bank, err := loader.LoadBank(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bank.Version != 3 || len(bank.Questions) != 1 || bank.Questions[0].CorrectOption != "Safe" {
		t.Fatalf("unexpected bank %+v", bank)
	}

	if _, err := loader.LoadBank(context.Background(), "broken"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error for broken bank, got %v", err)
	}
	if _, err := loader.LoadBank(context.Background(), "missing"); !errors.Is(err, domain.ErrQuestionBankNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, bankID)
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID:      "bank-1",
		Version: 1,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "CF stands for?",
				Options:       []string{"Contamination Factor", "Clean Factor"},
				CorrectOption: "Contamination Factor",
			},
		},
	}
}
