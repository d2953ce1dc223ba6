package app

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"metalwatch-service/internal/domain"
	"metalwatch-service/internal/index"
)

// SampleStore persists samples. List methods must return a snapshot in
// creation order, never a live view.
type SampleStore interface {
	SaveSample(ctx context.Context, sample domain.Sample) error
	ListSamplesByOwner(ctx context.Context, owner string) ([]domain.Sample, error)
	ListSamples(ctx context.Context) ([]domain.Sample, error)
}

// EventPublisher announces recorded samples and scored attempts.
type EventPublisher interface {
	PublishSample(ctx context.Context, event domain.SampleRecorded) error
	PublishAttempt(ctx context.Context, event domain.AttemptScored) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishSample(context.Context, domain.SampleRecorded) error { return nil }
func (NopPublisher) PublishAttempt(context.Context, domain.AttemptScored) error { return nil }

// History is an owner's samples with a forecast per metal.
type History struct {
	Samples     []domain.Sample            `json:"records"`
	Predictions map[string]domain.Forecast `json:"predictions"`
}

// PollutionService records samples and derives per-owner and per-location views.
type PollutionService struct {
	samples SampleStore
	events  EventPublisher
	log     logrus.FieldLogger
	now     func() time.Time
	newID   func() string
}

func NewPollutionService(samples SampleStore, events EventPublisher, log logrus.FieldLogger) *PollutionService {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PollutionService{
		samples: samples,
		events:  events,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *PollutionService) WithClock(now func() time.Time) *PollutionService {
	s.now = now
	return s
}

// Record validates the input, attaches indices and stores the sample.
func (s *PollutionService) Record(ctx context.Context, in domain.SampleInput) (domain.Sample, error) {
	if in.Owner == "" {
		return domain.Sample{}, domain.Invalid("owner", "must not be empty")
	}
	sample, err := index.NewSample(in)
	if err != nil {
		return domain.Sample{}, err
	}
	sample.ID = s.newID()
	sample.CreatedAt = s.now().UTC()

	if err := s.samples.SaveSample(ctx, sample); err != nil {
		return domain.Sample{}, err
	}

	if err := s.events.PublishSample(ctx, domain.SampleRecorded{Sample: sample}); err != nil {
		s.log.WithError(err).WithField("sample_id", sample.ID).Warn("publish sample event failed")
	}
	return sample, nil
}

// History returns the owner's samples oldest first and the next-value
// forecast for each metal, computed only from that owner's samples.
func (s *PollutionService) History(ctx context.Context, owner string) (History, error) {
	samples, err := s.samples.ListSamplesByOwner(ctx, owner)
	if err != nil {
		return History{}, err
	}
	return History{Samples: samples, Predictions: index.ForecastByMetal(samples)}, nil
}

// Locations aggregates every stored sample by location, highest hazard first.
func (s *PollutionService) Locations(ctx context.Context) ([]domain.LocationAggregate, error) {
	samples, err := s.samples.ListSamples(ctx)
	if err != nil {
		return nil, err
	}
	aggregates, err := index.AggregateByLocation(index.Contributions(samples))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		a, b := aggregates[i], aggregates[j]
		// NaN hazards sort last.
		if aNaN, bNaN := math.IsNaN(a.HazardIndex), math.IsNaN(b.HazardIndex); aNaN != bNaN {
			return bNaN
		}
		if a.HazardIndex != b.HazardIndex && !math.IsNaN(a.HazardIndex) {
			return a.HazardIndex > b.HazardIndex
		}
		return a.Location < b.Location
	})
	return aggregates, nil
}

// Summary bands the owner's samples by average pollution load.
func (s *PollutionService) Summary(ctx context.Context, owner string) (index.Summary, error) {
	samples, err := s.samples.ListSamplesByOwner(ctx, owner)
	if err != nil {
		return index.Summary{}, err
	}
	return index.Summarize(samples), nil
}
