package consensus

import "math"

// Calibrate combines a base confidence with an observed agreement score.
// Agreement boosts confidence in tiers; the result never exceeds
// MaxConfidence. Inputs are assumed pre-validated in [0,1]; no floor is
// applied beyond the input's own range.
func Calibrate(baseConfidence, agreement float64) float64 {
	var boost float64
	switch {
	case agreement > 0.9:
		boost = 0.15
	case agreement > 0.8:
		boost = 0.10
	case agreement > 0.7:
		boost = 0.05
	}
	return math.Min(MaxConfidence, baseConfidence+boost)
}
