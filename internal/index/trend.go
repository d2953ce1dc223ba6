package index

import "metalwatch-service/internal/domain"

// PredictNext extrapolates the next value of a chronologically ordered series
// from its last two points: last + (last - previous). It ignores everything
// before those two points. ok is false when fewer than two points exist.
func PredictNext(series []float64) (next float64, ok bool) {
	n := len(series)
	if n < 2 {
		return 0, false
	}
	last := series[n-1]
	slope := last - series[n-2]
	return last + slope, true
}

// ForecastByMetal groups concentrations by lowercase metal, keeping the
// order of samples, and predicts the next value for each group. Samples must
// already be in chronological order and belong to a single owner.
func ForecastByMetal(samples []domain.Sample) map[string]domain.Forecast {
	series := make(map[string][]float64)
	for _, s := range samples {
		metal := NormalizeMetal(s.Metal)
		series[metal] = append(series[metal], s.Concentration)
	}

	out := make(map[string]domain.Forecast, len(series))
	for metal, values := range series {
		next, ok := PredictNext(values)
		out[metal] = domain.Forecast{Value: next, Determinate: ok, Points: len(values)}
	}
	return out
}
