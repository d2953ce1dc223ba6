// Package index computes contamination indices for heavy-metal samples and
// combines them per location and per pollutant series. Everything here is a
// pure function of its arguments.
package index

import (
	"math"
	"strings"

	"metalwatch-service/internal/domain"
)

// BackgroundCorrection is the background-matrix correction factor in the
// geoaccumulation index.
const BackgroundCorrection = 1.5

// Compute derives cf, iGeo and the single-sample pli from a measurement.
// Degenerate inputs (zero limit, zero concentration) yield IEEE-754
// non-finite values which are returned as-is.
func Compute(concentration, permissibleLimit float64) domain.Indices {
	cf := concentration / permissibleLimit
	return domain.Indices{
		CF:   cf,
		IGeo: math.Log2(concentration / (BackgroundCorrection * permissibleLimit)),
		// Single-sample PLI is the contamination factor itself.
		PLI: cf,
	}
}

// NewSample validates the input and attaches derived indices.
func NewSample(in domain.SampleInput) (domain.Sample, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return domain.Sample{}, domain.Invalid("location", "must not be empty")
	}
	metal := NormalizeMetal(in.Metal)
	if metal == "" {
		return domain.Sample{}, domain.Invalid("metal", "must not be empty")
	}
	if math.IsNaN(in.Concentration) {
		return domain.Sample{}, domain.Invalid("concentration", "must be numeric")
	}
	if math.IsNaN(in.PermissibleLimit) {
		return domain.Sample{}, domain.Invalid("permissibleLimit", "must be numeric")
	}
	return domain.Sample{
		Owner:            in.Owner,
		Location:         location,
		Metal:            metal,
		Concentration:    in.Concentration,
		PermissibleLimit: in.PermissibleLimit,
		Indices:          Compute(in.Concentration, in.PermissibleLimit),
	}, nil
}

// NormalizeMetal is the grouping key for pollutant identifiers.
func NormalizeMetal(metal string) string {
	return strings.ToLower(strings.TrimSpace(metal))
}

// Class is the presentation band of a contamination factor.
type Class string

const (
	ClassLow          Class = "LOW"
	ClassModerate     Class = "MODERATE"
	ClassConsiderable Class = "CONSIDERABLE"
	ClassInvalid      Class = "INVALID"
)

// Classify maps cf onto the conventional bands: <=1 low, <=3 moderate,
// above that considerable.
func Classify(cf float64) Class {
	switch {
	case math.IsNaN(cf) || math.IsInf(cf, 0):
		return ClassInvalid
	case cf <= 1:
		return ClassLow
	case cf <= 3:
		return ClassModerate
	default:
		return ClassConsiderable
	}
}
