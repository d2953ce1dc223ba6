package domain

import "strings"

// Validate checks that every question has unique options and a correct option
// that is one of them.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return Invalid("questions", "question bank %q has no questions", b.ID)
	}
	seenIDs := make(map[string]struct{}, len(b.Questions))
	for i, q := range b.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return Invalid("questions", "question %d has no id", i)
		}
		if _, dup := seenIDs[q.ID]; dup {
			return Invalid("questions", "duplicate question id %q", q.ID)
		}
		seenIDs[q.ID] = struct{}{}

		options := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if _, dup := options[opt]; dup {
				return Invalid("options", "question %q repeats option %q", q.ID, opt)
			}
			options[opt] = struct{}{}
		}
		if _, ok := options[q.CorrectOption]; !ok {
			return Invalid("correctOption", "question %q: correct option %q is not among its options", q.ID, q.CorrectOption)
		}
	}
	return nil
}

// Public returns a copy of the bank with correct answers removed, for clients
// taking the quiz.
func (b QuestionBank) Public() QuestionBank {
	out := QuestionBank{ID: b.ID, Version: b.Version, Questions: make([]Question, len(b.Questions))}
	for i, q := range b.Questions {
		out.Questions[i] = Question{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  append([]string(nil), q.Options...),
			Category: q.Category,
		}
	}
	return out
}
