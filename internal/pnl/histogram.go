package pnl

import (
	"fmt"
	"math"

	"pnl-attribution/internal/models"
)

// ReturnEdges are the bucket edges, in percent, of the return histogram.
var ReturnEdges = []float64{math.Inf(-1), -2.0, -1.5, -1.0, -0.5, 0.0, 0.5, 1.0, 1.5, 2.0, math.Inf(1)}

// ReturnLabels returns one label per bucket of ReturnEdges.
func ReturnLabels() []string {
	return bucketLabels(ReturnEdges)
}

func bucketLabels(edges []float64) []string {
	n := len(edges) - 1
	labels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		low, high := edges[i], edges[i+1]
		switch {
		case i == 0 && math.IsInf(low, -1):
			labels = append(labels, fmt.Sprintf("≤ %.1f%%", high))
		case i == n-1:
			labels = append(labels, fmt.Sprintf("≥ %.1f%%", low))
		default:
			labels = append(labels, fmt.Sprintf("%.1f – %.1f%%", low, high))
		}
	}
	return labels
}

// BuildHistogram counts each round trip's percentage return into the
// ReturnEdges buckets. Buckets are half-open [low, high), so a return equal
// to an edge lands in the bucket above it.
func BuildHistogram(trips []models.RoundTrip) models.Histogram {
	h := models.Histogram{
		Labels: ReturnLabels(),
		Counts: make([]int, len(ReturnEdges)-1),
	}
	for _, rt := range trips {
		h.Counts[bucketIndex(ReturnEdges, rt.Return())]++
	}
	return h
}

// bucketIndex returns the first bucket with low <= ret < high. A NaN return
// (zero open and close price) counts as 0 and +Inf falls in the last bucket.
func bucketIndex(edges []float64, ret float64) int {
	if math.IsNaN(ret) {
		ret = 0
	}
	last := len(edges) - 2
	for i := 0; i < last; i++ {
		if ret >= edges[i] && ret < edges[i+1] {
			return i
		}
	}
	return last
}
