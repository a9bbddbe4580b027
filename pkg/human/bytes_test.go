package human

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		out  string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512 B"},
		{"below threshold", 1023, "1023 B"},
		{"kilobytes", 2048, "2.0 KB"},
		{"one kilobyte", 1024, "1.0 KB"},
		{"megabytes", 1048576, "1.0 MB"},
		{"gigabytes", 3*1024*1024*1024 + 100, "3.0 GB"},
		{"negative bytes", -500, "-500 B"},
		{"negative kilobytes", -1536, "-1.5 KB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.in); got != tt.out {
				t.Fatalf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.out)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		bytes    float64
		metric   bool
		decimals int
		out      string
	}{
		{"binary kilobyte", 1024, false, 1, "1.0 KB"},
		{"metric kilobyte from 1024", 1024, true, 1, "1.0 kB"},
		{"metric below threshold", 999, true, 1, "999 B"},
		{"metric threshold", 1000, true, 1, "1.0 kB"},
		{"binary 1000 stays bytes", 1000, false, 1, "1000 B"},
		{"fractional bytes", 512.5, false, 1, "512.5 B"},
		{"negative below threshold", -500, false, 1, "-500 B"},
		{"negative megabytes", -1048576, false, 1, "-1.0 MB"},
		{"two decimals", 1536, false, 2, "1.50 KB"},
		{"zero decimals binary", 999950, false, 0, "977 KB"},
		{"rounding promotes metric", 999950, true, 1, "1.0 MB"},
		{"rounding promotes with zero decimals", 999500, true, 0, "1 MB"},
		{"no promotion just below rounding boundary", 999449, true, 0, "999 kB"},
		{"binary rounding promotes", 1048575, false, 1, "1.0 MB"},
		{"half rounds away from zero", 1280, false, 1, "1.3 KB"},
		{"negative half rounds away from zero", -1280, false, 1, "-1.3 KB"},
		{"yottabytes", 1e24, true, 1, "1.0 YB"},
		{"capped at yottabytes", 1e30, true, 1, "1000000.0 YB"},
		{"negative decimals clamp to zero", 1536, false, -3, "2 KB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.bytes, tt.metric, tt.decimals); got != tt.out {
				t.Fatalf("Format(%v, %t, %d) = %q, want %q", tt.bytes, tt.metric, tt.decimals, got, tt.out)
			}
		})
	}
}

func TestFormatBelowThresholdIsVerbatim(t *testing.T) {
	for i := 0; i < 1024; i++ {
		want := fmt.Sprintf("%d B", i)
		if got := Format(float64(i), false, 1); got != want {
			t.Fatalf("Format(%d, false, 1) = %q, want %q", i, got, want)
		}
		if i < 1000 {
			if got := Format(float64(i), true, 1); got != want {
				t.Fatalf("Format(%d, true, 1) = %q, want %q", i, got, want)
			}
		}
	}
}

func TestFormatNonFinite(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		out  string
	}{
		{"nan", math.NaN(), "NaN KB"},
		{"positive infinity", math.Inf(1), "+Inf YB"},
		{"negative infinity", math.Inf(-1), "-Inf YB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in, false, 1); got != tt.out {
				t.Fatalf("Format(%v) = %q, want %q", tt.in, got, tt.out)
			}
		})
	}
}

func TestFormatNeverUsesExponent(t *testing.T) {
	if got := Format(1e-7, false, 1); got != "0.0000001 B" {
		t.Fatalf("Format(1e-7) = %q", got)
	}
	got := Format(math.MaxFloat64, false, 1)
	number, unit, ok := strings.Cut(got, " ")
	if !ok || unit != "YB" {
		t.Fatalf("Format(MaxFloat64) = %q, want YB unit", got)
	}
	if strings.ContainsAny(number, "eE+") {
		t.Fatalf("Format(MaxFloat64) used exponent form: %q", number)
	}
	integer, fraction, _ := strings.Cut(number, ".")
	if len(integer) != 285 || len(fraction) != 1 {
		t.Fatalf("Format(MaxFloat64) = %d integer and %d fraction digits", len(integer), len(fraction))
	}
}

func TestToFixed(t *testing.T) {
	tests := []struct {
		in     float64
		digits int
		out    string
	}{
		{1.005, 2, "1.00"},
		{0.0994, 1, "0.1"},
		{0.04, 1, "0.0"},
		{-0.04, 1, "-0.0"},
		{2.5, 0, "3"},
		{12.345678, 3, "12.346"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%d", tt.in, tt.digits), func(t *testing.T) {
			if got := toFixed(tt.in, tt.digits); got != tt.out {
				t.Fatalf("toFixed(%v, %d) = %q, want %q", tt.in, tt.digits, got, tt.out)
			}
		})
	}
}
