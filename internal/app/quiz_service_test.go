package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"metalwatch-service/internal/app"
	"metalwatch-service/internal/domain"
	"metalwatch-service/internal/infra/memory"
)

func TestSubmitScoresAndRanks(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestQuizService(memory.NewStaticBankLoader(testBank(1)))

	alice, err := service.Submit(ctx, "u1", "Alice", []string{"Right", "Wrong"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if alice.Report.Score != 1 || alice.Report.Percentage != 50 || alice.Report.CertificateEligible {
		t.Fatalf("unexpected report %+v", alice.Report)
	}
	if alice.ID == "" || alice.BankVersion != 1 {
		t.Fatalf("expected id and bank version, got %+v", alice)
	}

	if _, err := service.Submit(ctx, "u2", "Bob", []string{"Right", "Right"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	lb, err := service.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb.Entries))
	}
	if lb.Entries[0].Subject != "u2" || lb.Entries[0].BestPercentage != 100 {
		t.Fatalf("expected Bob to lead, got %+v", lb.Entries[0])
	}
}

func TestSubmitRejectsLengthMismatch(t *testing.T) {
	service, attempts := newTestQuizService(memory.NewStaticBankLoader(testBank(1)))

	_, err := service.Submit(context.Background(), "u1", "Alice", []string{"Right"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	stored, _ := attempts.ListAttempts(context.Background())
	if len(stored) != 0 {
		t.Fatalf("rejected submission must not be stored, got %d", len(stored))
	}
}

func TestSubmitUnknownBank(t *testing.T) {
	service, _ := newTestQuizService(memory.NewStaticBankLoader())

	_, err := service.Submit(context.Background(), "u1", "Alice", []string{"Right", "Right"})
	if !errors.Is(err, domain.ErrQuestionBankNotFound) {
		t.Fatalf("expected bank not found, got %v", err)
	}
}

func TestHistoricalAttemptsKeepTheirKey(t *testing.T) {
	ctx := context.Background()
	loader := &swappableLoader{bank: testBank(1)}
	banks := memory.NewBankRepository(loader, time.Minute)
	attempts := memory.NewAttemptStore()
	log, _ := test.NewNullLogger()
	service := app.NewQuizService(banks, attempts, app.QuizOptions{BankID: "bank-1", Logger: log})

	first, err := service.Submit(ctx, "u1", "Alice", []string{"Right", "Right"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Reword the correct answer and force a reload.
	loader.bank = testBank(2)
	loader.bank.Questions[0].Options = []string{"Wrong", "Correct"}
	loader.bank.Questions[0].CorrectOption = "Correct"
	banks.Invalidate("bank-1")

	second, err := service.Submit(ctx, "u1", "Alice", []string{"Right", "Right"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if second.Report.Score != 1 || second.BankVersion != 2 {
		t.Fatalf("expected new key to apply, got %+v", second)
	}

	history, err := service.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", history)
	}
	if history[1].ID != first.ID || history[1].Report.Score != 2 || history[1].AnswerKey[0] != "Right" {
		t.Fatalf("historical attempt changed: %+v", history[1])
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestQuizService(memory.NewStaticBankLoader(testBank(1)))

	ch, cancel, err := service.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial.Entries)
	}

	if _, err := service.Submit(ctx, "u1", "Alice", []string{"Right", "Right"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case update := <-ch:
		if len(update.Entries) != 1 || update.Entries[0].BestPercentage != 100 {
			t.Fatalf("expected one perfect entry, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("no leaderboard update")
	}
}

func TestSubmitPublishesEvent(t *testing.T) {
	events := &recordingPublisher{}
	log, _ := test.NewNullLogger()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(testBank(1)), time.Minute)
	service := app.NewQuizService(banks, memory.NewAttemptStore(), app.QuizOptions{BankID: "bank-1", Events: events, Logger: log})

	attempt, err := service.Submit(context.Background(), "u1", "Alice", []string{"Right", "Right"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(events.attempts) != 1 || events.attempts[0].AttemptID != attempt.ID {
		t.Fatalf("expected one attempt event, got %+v", events.attempts)
	}
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	events := &recordingPublisher{err: errors.New("broker down")}
	log, hook := test.NewNullLogger()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(testBank(1)), time.Minute)
	service := app.NewQuizService(banks, memory.NewAttemptStore(), app.QuizOptions{BankID: "bank-1", Events: events, Logger: log})

	if _, err := service.Submit(context.Background(), "u1", "Alice", []string{"Right", "Right"}); err != nil {
		t.Fatalf("publish failure must not fail submit: %v", err)
	}
	if hook.LastEntry() == nil {
		t.Fatalf("expected a logged warning")
	}
}

func newTestQuizService(loader memory.BankLoader) (*app.QuizService, *memory.AttemptStore) {
	log, _ := test.NewNullLogger()
	attempts := memory.NewAttemptStore()
	banks := memory.NewBankRepository(loader, 5*time.Minute)
	return app.NewQuizService(banks, attempts, app.QuizOptions{BankID: "bank-1", Logger: log}), attempts
}

func testBank(version int) domain.QuestionBank {
	return domain.QuestionBank{
		ID:      "bank-1",
		Version: version,
		Questions: []domain.Question{
			{ID: "q1", Prompt: "Select the right option", Options: []string{"Wrong", "Right"}, CorrectOption: "Right"},
			{ID: "q2", Prompt: "Again", Options: []string{"Wrong", "Right"}, CorrectOption: "Right"},
		},
	}
}

type swappableLoader struct {
	bank domain.QuestionBank
}

func (l *swappableLoader) LoadBank(_ context.Context, bankID string) (domain.QuestionBank, error) {
	if bankID != l.bank.ID {
		return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
	}
	return l.bank, nil
}

type recordingPublisher struct {
	err      error
	samples  []domain.SampleRecorded
	attempts []domain.AttemptScored
}

func (p *recordingPublisher) PublishSample(_ context.Context, e domain.SampleRecorded) error {
	p.samples = append(p.samples, e)
	return p.err
}

func (p *recordingPublisher) PublishAttempt(_ context.Context, e domain.AttemptScored) error {
	p.attempts = append(p.attempts, e)
	return p.err
}

func TestConcurrentSubmitsPublishInOrder(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestQuizService(memory.NewStaticBankLoader(testBank(1)))

	ch, cancel, err := service.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()
	<-ch // initial snapshot

	const subjects = 8
	var wg sync.WaitGroup
	for i := 0; i < subjects; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := service.Submit(ctx, fmt.Sprintf("u%d", i), "user", []string{"Right", "Right"}); err != nil {
				t.Errorf("submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	prev := 0
	for len(ch) > 0 {
		lb := <-ch
		if len(lb.Entries) < prev {
			t.Fatalf("stale snapshot after newer one: %d entries after %d", len(lb.Entries), prev)
		}
		prev = len(lb.Entries)
	}
	if prev != subjects {
		t.Fatalf("expected final snapshot with %d entries, got %d", subjects, prev)
	}
}
