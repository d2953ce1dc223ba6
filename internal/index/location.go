package index

import (
	"math"
	"strings"

	"metalwatch-service/internal/domain"
)

// Contribution is the part of a sample the location aggregate needs.
type Contribution struct {
	Location string
	Metal    string
	CF       float64
}

// Contributions projects samples onto their location contributions.
func Contributions(samples []domain.Sample) []Contribution {
	out := make([]Contribution, len(samples))
	for i, s := range samples {
		out[i] = Contribution{Location: s.Location, Metal: s.Metal, CF: s.Indices.CF}
	}
	return out
}

// AggregateByLocation produces one aggregate per distinct location. Within a
// location, metals and contamination factors keep their input order. The
// result lists locations in order of first appearance; callers sort for
// presentation.
func AggregateByLocation(contributions []Contribution) ([]domain.LocationAggregate, error) {
	groups := make(map[string]*domain.LocationAggregate)
	order := make([]string, 0)
	for i, c := range contributions {
		if strings.TrimSpace(c.Location) == "" {
			return nil, domain.Invalid("location", "contribution %d has an empty location", i)
		}
		metal := NormalizeMetal(c.Metal)
		if metal == "" {
			return nil, domain.Invalid("metal", "contribution %d has an empty metal", i)
		}
		g, ok := groups[c.Location]
		if !ok {
			g = &domain.LocationAggregate{Location: c.Location}
			groups[c.Location] = g
			order = append(order, c.Location)
		}
		g.Metals = append(g.Metals, metal)
		g.CFValues = append(g.CFValues, c.CF)
	}

	out := make([]domain.LocationAggregate, 0, len(order))
	for _, loc := range order {
		g := groups[loc]
		if len(g.CFValues) == 0 {
			panic("index: location group without samples: " + loc)
		}
		g.MultiMetalIndex = MultiMetalIndex(g.CFValues)
		g.HazardIndex = HazardIndex(g.CFValues)
		out = append(out, *g)
	}
	return out, nil
}

// MultiMetalIndex is the geometric mean of the contamination factors,
// (cf1 * ... * cfn)^(1/n). A negative or NaN factor makes the result NaN; an
// empty slice is NaN as well. A zero factor is kept as a real 0 rather than
// treated as non-positive, so an unpolluted metal pulls the index to 0.
func MultiMetalIndex(cfs []float64) float64 {
	if len(cfs) == 0 {
		return math.NaN()
	}
	product := 1.0
	for _, cf := range cfs {
		if math.IsNaN(cf) || cf < 0 {
			return math.NaN()
		}
		product *= cf
	}
	return math.Pow(product, 1/float64(len(cfs)))
}

// HazardIndex is the sum of the contamination factors.
func HazardIndex(cfs []float64) float64 {
	sum := 0.0
	for _, cf := range cfs {
		sum += cf
	}
	return sum
}
