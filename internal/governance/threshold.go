package governance

import "math/bits"

// ThresholdScale is the fixed-point scale (10^9) all acceptance/rejection
// ratios and the return value of ComputeThreshold are expressed in.
const ThresholdScale = 1_000_000_000

// ComputeThreshold returns numerator * ThresholdScale / denominator as a
// u32, matching the reference program's integer ratio computation exactly.
// A zero denominator returns 0 (no stake means no proposal can ever cross
// a threshold); overflow of the scaled product or of the u32 result fails
// with CodeArithmeticOverflow.
func ComputeThreshold(numerator, denominator uint64) (uint32, error) {
	if denominator == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(numerator, ThresholdScale)
	if hi >= denominator {
		return 0, newError(CodeArithmeticOverflow, "threshold numerator overflowed scaling")
	}
	quotient, _ := bits.Div64(hi, lo, denominator)
	if quotient > 0xffffffff {
		return 0, newError(CodeArithmeticOverflow, "threshold result exceeds u32 range")
	}
	return uint32(quotient), nil
}

// MeetsThreshold reports whether stake crosses threshold over totalStake.
func MeetsThreshold(stake, totalStake uint64, threshold uint32) (bool, error) {
	ratio, err := ComputeThreshold(stake, totalStake)
	if err != nil {
		return false, err
	}
	if totalStake == 0 {
		return false, nil
	}
	return ratio >= threshold, nil
}
