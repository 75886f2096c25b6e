// Package indicator implements the technical indicators used by the signal
// strategies. Every function returns a series aligned with its input; positions
// where the indicator is not yet defined hold NaN.
package indicator

import "math"

// SMA returns the simple moving average over window values.
func SMA(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RSI returns Wilder's relative strength index. The first average gain and
// loss are the simple mean of the first length changes; later values use
// Wilder smoothing.
func RSI(values []float64, length int) []float64 {
	out := nanSeries(len(values))
	if length <= 0 || len(values) <= length {
		return out
	}

	var gain, loss float64
	for i := 1; i <= length; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(length)
	avgLoss := loss / float64(length)
	out[length] = rsi(avgGain, avgLoss)

	n := float64(length)
	for i := length + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(n-1) + g) / n
		avgLoss = (avgLoss*(n-1) + l) / n
		out[i] = rsi(avgGain, avgLoss)
	}
	return out
}

func rsi(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// PctChange returns the percentage difference of a relative to b.
func PctChange(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) || math.IsNaN(a) {
		return math.NaN()
	}
	return (a - b) / b * 100
}

// ArgMax returns the index of the first maximum, or -1 for an empty series.
func ArgMax(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v > values[idx] {
			idx = i
		}
	}
	return idx
}

// ArgMin returns the index of the first minimum, or -1 for an empty series.
func ArgMin(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v < values[idx] {
			idx = i
		}
	}
	return idx
}

// Last returns the final element of the series, or NaN when it is empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
