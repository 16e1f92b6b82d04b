package aggregate

import "time"

func hourlyIndex(n int) []time.Time {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}
