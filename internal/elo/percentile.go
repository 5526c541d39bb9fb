package elo

// Percentile places rating within all ratings on a 0-100 scale. Ties count
// half. An empty population puts everything at the median.
func Percentile(rating float64, all []float64) float64 {
	if len(all) == 0 {
		return 50
	}
	var below, equal int
	for _, r := range all {
		switch {
		case r < rating:
			below++
		case r == rating:
			equal++
		}
	}
	p := (float64(below) + float64(equal)/2) / float64(len(all)) * 100
	return max(0, min(100, p))
}

// IsAboveMedian reports whether rating sits in the upper half of all.
func IsAboveMedian(rating float64, all []float64) bool {
	return Percentile(rating, all) >= 50
}
