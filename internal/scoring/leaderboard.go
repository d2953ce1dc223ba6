package scoring

import (
	"sort"
	"time"

	"metalwatch-service/internal/domain"
)

// DefaultLeaderboardLimit applies when the requested limit is not positive.
const DefaultLeaderboardLimit = 10

type standing struct {
	entry       domain.LeaderboardEntry
	bestReached time.Time
	nameAsOf    time.Time
}

// Rank groups attempts by subject and orders subjects by best percentage.
// Ties go to whoever reached that best percentage first, then display name,
// then subject. The result holds at most limit entries.
func Rank(attempts []domain.QuizAttempt, limit int) []domain.LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	bySubject := make(map[string]*standing)
	for _, a := range attempts {
		pct := a.Report.Percentage
		s, ok := bySubject[a.Subject]
		if !ok {
			bySubject[a.Subject] = &standing{
				entry: domain.LeaderboardEntry{
					Subject:             a.Subject,
					DisplayName:         a.DisplayName,
					BestPercentage:      pct,
					AttemptCount:        1,
					MostRecentAttemptAt: a.ScoredAt,
				},
				bestReached: a.ScoredAt,
				nameAsOf:    a.ScoredAt,
			}
			continue
		}

		s.entry.AttemptCount++
		switch {
		case pct > s.entry.BestPercentage:
			s.entry.BestPercentage = pct
			s.bestReached = a.ScoredAt
		case pct == s.entry.BestPercentage && a.ScoredAt.Before(s.bestReached):
			s.bestReached = a.ScoredAt
		}
		if a.ScoredAt.After(s.entry.MostRecentAttemptAt) {
			s.entry.MostRecentAttemptAt = a.ScoredAt
		}
		// The newest attempt carries the current display name.
		if !a.ScoredAt.Before(s.nameAsOf) {
			s.entry.DisplayName = a.DisplayName
			s.nameAsOf = a.ScoredAt
		}
	}

	standings := make([]*standing, 0, len(bySubject))
	for _, s := range bySubject {
		standings = append(standings, s)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.entry.BestPercentage != b.entry.BestPercentage {
			return a.entry.BestPercentage > b.entry.BestPercentage
		}
		if !a.bestReached.Equal(b.bestReached) {
			return a.bestReached.Before(b.bestReached)
		}
		if a.entry.DisplayName != b.entry.DisplayName {
			return a.entry.DisplayName < b.entry.DisplayName
		}
		return a.entry.Subject < b.entry.Subject
	})

	if len(standings) > limit {
		standings = standings[:limit]
	}
	out := make([]domain.LeaderboardEntry, len(standings))
	for i, s := range standings {
		out[i] = s.entry
	}
	return out
}
