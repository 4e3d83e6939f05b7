package utils

import "math"

// bytesPerGB is the binary gigabyte used for every size in the report
const bytesPerGB = 1024 * 1024 * 1024

// Round rounds a float64 value to 2 decimal places
// Used throughout the report to avoid unnecessary precision
func Round(val float64) float64 {
	// Use proper rounding that works for both positive and negative numbers
	return math.Round(val*100) / 100
}

// BytesToGB converts a byte count to gigabytes rounded to 2 decimal places
func BytesToGB(b uint64) float64 {
	return Round(float64(b) / bytesPerGB)
}

// Clamp bounds val to [lo, hi]. NaN maps to lo.
func Clamp(val, lo, hi float64) float64 {
	if math.IsNaN(val) || val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
