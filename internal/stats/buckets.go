// Package stats computes the dashboard aggregates over the patient registry.
// It is dependency-free apart from the patient model and can be tested
// without a database.
package stats

import "fmt"

// AgeBucket is one bar of the age chart. Max < 0 means open-ended.
type AgeBucket struct {
	Label string
	Min   int
	Max   int
}

// Contains reports whether age falls in the bucket, bounds inclusive.
func (b AgeBucket) Contains(age int) bool {
	if age < b.Min {
		return false
	}
	return b.Max < 0 || age <= b.Max
}

// AgeBuckets are the age chart's bars in display order. Ages under 18 fall
// outside every bucket and are not charted.
var AgeBuckets = []AgeBucket{
	{Label: "18-35", Min: 18, Max: 35},
	{Label: "36-50", Min: 36, Max: 50},
	{Label: "51-65", Min: 51, Max: 65},
	{Label: "65+", Min: 66, Max: -1},
}

// validateBuckets checks that buckets are ordered and do not overlap.
func validateBuckets(bs []AgeBucket) error {
	for i, b := range bs {
		if b.Max >= 0 && b.Max < b.Min {
			return fmt.Errorf("stats: bucket %q: max %d < min %d", b.Label, b.Max, b.Min)
		}
		if i == 0 {
			continue
		}
		prev := bs[i-1]
		if prev.Max < 0 {
			return fmt.Errorf("stats: bucket %q follows open-ended bucket %q", b.Label, prev.Label)
		}
		if b.Min <= prev.Max {
			return fmt.Errorf("stats: bucket %q overlaps %q", b.Label, prev.Label)
		}
	}
	return nil
}
