package index

import (
	"encoding/json"
	"math"
	"sort"

	"metalwatch-service/internal/domain"
)

// Status bands the average pollution load of a sample set.
type Status string

const (
	StatusNoData    Status = "NO_DATA"
	StatusExcellent Status = "EXCELLENT"
	StatusSafe      Status = "SAFE"
	StatusModerate  Status = "MODERATE"
	StatusHigh      Status = "HIGH"
	StatusCritical  Status = "CRITICAL"
	StatusInvalid   Status = "INVALID"
)

// LocationAttention is a location whose mean pli exceeds 1.
type LocationAttention struct {
	Location  string  `json:"location"`
	AvgPLI    float64 `json:"avgPLI"`
	HighCount int     `json:"highCount"`
}

// Summary describes the overall state of a sample set.
type Summary struct {
	Status         Status              `json:"status"`
	AveragePLI     float64             `json:"averagePLI"`
	HighCount      int                 `json:"highCount"`
	SampleCount    int                 `json:"sampleCount"`
	NeedsAttention []LocationAttention `json:"needsAttention"`
}

// Summarize averages per-sample pli and lists locations needing attention,
// highest mean first.
func Summarize(samples []domain.Sample) Summary {
	summary := Summary{SampleCount: len(samples), NeedsAttention: []LocationAttention{}}
	if len(samples) == 0 {
		summary.Status = StatusNoData
		return summary
	}

	type acc struct {
		sum  float64
		n    int
		high int
	}
	perLocation := make(map[string]*acc)
	total := 0.0
	for _, s := range samples {
		pli := s.Indices.PLI
		total += pli
		a, ok := perLocation[s.Location]
		if !ok {
			a = &acc{}
			perLocation[s.Location] = a
		}
		a.sum += pli
		a.n++
		if pli > 1 {
			summary.HighCount++
			a.high++
		}
	}
	summary.AveragePLI = total / float64(len(samples))
	summary.Status = band(summary.AveragePLI)

	for loc, a := range perLocation {
		avg := a.sum / float64(a.n)
		if avg > 1 {
			summary.NeedsAttention = append(summary.NeedsAttention, LocationAttention{Location: loc, AvgPLI: avg, HighCount: a.high})
		}
	}
	sort.Slice(summary.NeedsAttention, func(i, j int) bool {
		a, b := summary.NeedsAttention[i], summary.NeedsAttention[j]
		if a.AvgPLI != b.AvgPLI {
			return a.AvgPLI > b.AvgPLI
		}
		return a.Location < b.Location
	})
	return summary
}

func band(avg float64) Status {
	switch {
	case math.IsNaN(avg):
		return StatusInvalid
	case avg < 0.5:
		return StatusExcellent
	case avg < 1:
		return StatusSafe
	case avg < 2:
		return StatusModerate
	case avg < 3:
		return StatusHigh
	default:
		return StatusCritical
	}
}

func (a LocationAttention) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Location  string        `json:"location"`
		AvgPLI    domain.Number `json:"avgPLI"`
		HighCount int           `json:"highCount"`
	}{a.Location, domain.Number(a.AvgPLI), a.HighCount})
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status         Status              `json:"status"`
		AveragePLI     domain.Number       `json:"averagePLI"`
		HighCount      int                 `json:"highCount"`
		SampleCount    int                 `json:"sampleCount"`
		NeedsAttention []LocationAttention `json:"needsAttention"`
	}{s.Status, domain.Number(s.AveragePLI), s.HighCount, s.SampleCount, s.NeedsAttention})
}
