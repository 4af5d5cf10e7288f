package scheduler

import "math"

const (
	// Each nice level is worth about 1.25x the CPU share of the next.
	niceStep = 1.25
	maxNice  = 19
)

// NiceForWeight maps a ticket weight onto a nice value so that CFS shares track the ratio
// weight:reference. Weights at or above reference run at nice 0.
func NiceForWeight(weight, reference int) int {
	if weight <= 0 {
		return maxNice
	}
	if weight >= reference {
		return 0
	}
	nice := int(math.Round(math.Log(float64(reference)/float64(weight)) / math.Log(niceStep)))
	if nice > maxNice {
		return maxNice
	}
	return nice
}
