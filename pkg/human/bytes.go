package human

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DefaultDecimalPlaces is the precision used by FormatBytes.
const DefaultDecimalPlaces = 1

const maxDecimalPlaces = 100

var (
	metricUnits = []string{"kB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}
	binaryUnits = []string{"KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}
)

// FormatBytes converts a byte count into a human readable string using
// binary multiples and one decimal place.
func FormatBytes(n int64) string {
	return Format(float64(n), false, DefaultDecimalPlaces)
}

// Format converts a byte count into a human readable string.
//
// Metric selects powers of 1000 (kB, MB, ...) instead of powers of 1024
// (KB, MB, ...). Values below one unit are returned verbatim with a " B"
// suffix. Otherwise the value is promoted while its magnitude, rounded to
// decimalPlaces, still reaches the next unit, stopping at YB.
func Format(bytes float64, metric bool, decimalPlaces int) string {
	threshold := 1024.0
	units := binaryUnits
	if metric {
		threshold = 1000
		units = metricUnits
	}
	if decimalPlaces < 0 {
		decimalPlaces = 0
	}
	if decimalPlaces > maxDecimalPlaces {
		decimalPlaces = maxDecimalPlaces
	}

	if math.Abs(bytes) < threshold {
		return formatRaw(bytes) + " B"
	}

	scale := math.Pow(10, float64(decimalPlaces))
	idx := -1
	for {
		bytes /= threshold
		idx++
		rounded := math.Round(math.Abs(bytes)*scale) / scale
		// NaN never compares >= threshold, so it stops at the first unit.
		if !(rounded >= threshold) || idx >= len(units)-1 {
			break
		}
	}
	return toFixed(bytes, decimalPlaces) + " " + units[idx]
}

func formatRaw(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fixedPrec keeps every float64 exact after scaling by 10^maxDecimalPlaces.
const fixedPrec = 4096

// toFixed renders v with exactly digits fractional digits, picking the
// decimal closest to the exact binary value and breaking exact ties away
// from zero.
func toFixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', digits, 64)
	}

	exact := new(big.Float).SetPrec(fixedPrec).SetFloat64(math.Abs(v))
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	exact.Mul(exact, new(big.Float).SetPrec(fixedPrec).SetInt(pow))

	whole, _ := exact.Int(nil)
	frac := new(big.Float).SetPrec(fixedPrec).Sub(exact, new(big.Float).SetPrec(fixedPrec).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		whole.Add(whole, big.NewInt(1))
	}

	out := whole.String()
	if digits > 0 {
		if len(out) <= digits {
			out = strings.Repeat("0", digits-len(out)+1) + out
		}
		out = out[:len(out)-digits] + "." + out[len(out)-digits:]
	}
	if v < 0 {
		out = "-" + out
	}
	return out
}
