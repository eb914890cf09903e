package agronomy

import "math"

type Trend string

const (
	TrendDecliningRapidly  Trend = "declining rapidly"
	TrendDeclining         Trend = "declining"
	TrendStable            Trend = "stable"
	TrendIncreasing        Trend = "increasing"
	TrendIncreasingRapidly Trend = "increasing rapidly"
	TrendUnknown           Trend = "unknown"
)

// TrendThresholds controls EstimateTrend. Window is the sample count of both the
// recent and the older window; deltas strictly beyond Rapid or Moderate move the
// classification away from stable.
var TrendThresholds = struct {
	Window   int
	Moderate float64
	Rapid    float64
}{
	Window:   10,
	Moderate: 2,
	Rapid:    5,
}

// EstimateTrend classifies a most-recent-first series by comparing the mean of
// its first Window samples with the mean of its last Window samples. The two
// windows overlap when the series is shorter than twice the window.
func EstimateTrend(samples []*float64) Trend {
	if len(samples) < 2 {
		return TrendStable
	}
	window := TrendThresholds.Window
	recent := samples[:min(window, len(samples))]
	older := samples[max(0, len(samples)-window):]
	delta := windowMean(recent) - windowMean(older)
	switch {
	case delta < -TrendThresholds.Rapid:
		return TrendDecliningRapidly
	case delta < -TrendThresholds.Moderate:
		return TrendDeclining
	case delta > TrendThresholds.Rapid:
		return TrendIncreasingRapidly
	case delta > TrendThresholds.Moderate:
		return TrendIncreasing
	default:
		return TrendStable
	}
}

// EstimateTrendValues is EstimateTrend over a dense series.
func EstimateTrendValues(values []float64) Trend {
	samples := make([]*float64, len(values))
	for i := range values {
		samples[i] = &values[i]
	}
	return EstimateTrend(samples)
}

// windowMean skips missing and non-finite samples; an empty window averages to 0.
func windowMean(samples []*float64) float64 {
	sum := 0.0
	count := 0
	for _, sample := range samples {
		if sample == nil || math.IsNaN(*sample) || math.IsInf(*sample, 0) {
			continue
		}
		sum += *sample
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
