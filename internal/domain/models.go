package domain

import "time"

// Indices are the per-sample contamination metrics derived from a measurement.
type Indices struct {
	CF   float64 `json:"cf"`
	IGeo float64 `json:"iGeo"`
	PLI  float64 `json:"pli"`
}

// Sample is one contamination measurement with its derived indices attached.
// Samples are immutable once created.
type Sample struct {
	ID               string    `json:"id"`
	Owner            string    `json:"owner"`
	Location         string    `json:"location"`
	Metal            string    `json:"metal"` // lowercase
	Concentration    float64   `json:"concentration"`
	PermissibleLimit float64   `json:"permissibleLimit"`
	Indices          Indices   `json:"indices"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SampleInput is the caller-supplied part of a Sample.
type SampleInput struct {
	Owner            string
	Location         string
	Metal            string
	Concentration    float64
	PermissibleLimit float64
}

// LocationAggregate combines every sample recorded at one location.
type LocationAggregate struct {
	Location        string    `json:"location"`
	Metals          []string  `json:"metals"`
	CFValues        []float64 `json:"cfValues"`
	MultiMetalIndex float64   `json:"multiMetalPLI"`
	HazardIndex     float64   `json:"hazardIndex"`
}

// Forecast is the next-value extrapolation for one pollutant series.
// Determinate is false when the series was too short to predict.
type Forecast struct {
	Value       float64 `json:"value"`
	Determinate bool    `json:"determinate"`
	Points      int     `json:"points"`
}

// Question models a multiple choice question whose answer is the option text itself.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption string   `json:"correctOption,omitempty" yaml:"correct_option"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
}

// QuestionBank is the canonical, versioned set of quiz questions.
type QuestionBank struct {
	ID        string     `json:"id" yaml:"id"`
	Version   int        `json:"version" yaml:"version"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// AnswerKey returns the correct options in question order.
func (b QuestionBank) AnswerKey() []string {
	key := make([]string, len(b.Questions))
	for i, q := range b.Questions {
		key[i] = q.CorrectOption
	}
	return key
}

// ScoreReport is the outcome of comparing submitted answers with an answer key.
type ScoreReport struct {
	Score               int     `json:"score"`
	Total               int     `json:"total"`
	Wrong               int     `json:"wrong"`
	Percentage          float64 `json:"percentage"`
	CertificateEligible bool    `json:"certificateEligible"`
}

// QuizAttempt is one scored submission. The answer key is a snapshot taken at
// scoring time so later bank edits never change historical grades.
type QuizAttempt struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	DisplayName      string      `json:"displayName"`
	BankID           string      `json:"bankId"`
	BankVersion      int         `json:"bankVersion"`
	SubmittedAnswers []string    `json:"submittedAnswers"`
	AnswerKey        []string    `json:"answerKey"`
	Report           ScoreReport `json:"report"`
	ScoredAt         time.Time   `json:"scoredAt"`
}

// LeaderboardEntry is the per-subject view derived from all of a subject's attempts.
type LeaderboardEntry struct {
	Subject             string    `json:"subject"`
	DisplayName         string    `json:"displayName"`
	BestPercentage      float64   `json:"bestPercentage"`
	AttemptCount        int       `json:"attemptCount"`
	MostRecentAttemptAt time.Time `json:"mostRecentAttemptAt"`
}

// Leaderboard captures a ranked snapshot.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SampleRecorded is published after a sample is stored.
type SampleRecorded struct {
	Sample Sample `json:"sample"`
}

// AttemptScored is published after a quiz attempt is stored.
type AttemptScored struct {
	AttemptID   string      `json:"attemptId"`
	Subject     string      `json:"subject"`
	DisplayName string      `json:"displayName"`
	Report      ScoreReport `json:"report"`
	ScoredAt    time.Time   `json:"scoredAt"`
}
