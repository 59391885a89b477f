package safe

import (
	"testing"
)

// FuzzAdd tests Add with fuzzing.
func FuzzAdd(f *testing.F) {
	// Seed corpus
	f.Add(int64(0), int64(0))
	f.Add(int64(1), int64(2))
	f.Add(int64(-1), int64(1))
	f.Add(int64(9223372036854775807), int64(0))  // MaxInt64
	f.Add(int64(-9223372036854775808), int64(0)) // MinInt64

	f.Fuzz(func(t *testing.T, a, b int64) {
		defer func() { recover() }() // Overflow panic is expected behavior
		_ = Add(a, b)
	})
}

// FuzzSub tests Sub with fuzzing.
func FuzzSub(f *testing.F) {
	f.Add(int64(0), int64(0))
	f.Add(int64(10), int64(5))
	f.Add(int64(-1), int64(-1))
	f.Add(int64(9223372036854775807), int64(0))
	f.Add(int64(-9223372036854775808), int64(0))

	f.Fuzz(func(t *testing.T, a, b int64) {
		defer func() { recover() }()
		_ = Sub(a, b)
	})
}

// FuzzMulDiv tests MulDiv against plain Mul+Div where both are defined.
func FuzzMulDiv(f *testing.F) {
	f.Add(int64(0), int64(0), int64(1))
	f.Add(int64(2), int64(3), int64(4))
	f.Add(int64(1000000), int64(1000000), int64(100000000))
	f.Add(int64(9223372036854775807), int64(1), int64(1))

	f.Fuzz(func(t *testing.T, a, b, d int64) {
		if a < 0 || b < 0 || d <= 0 {
			return
		}
		defer func() { recover() }() // large-quotient panic is expected
		got := MulDiv(a, b, d)

		// Cross-check with the narrow path when the product fits.
		if b == 0 || a <= (1<<62)/max64(b, 1) {
			want := Div(Mul(a, b), d)
			if got != want {
				t.Errorf("MulDiv(%d,%d,%d) = %d, want %d", a, b, d, got, want)
			}
		}
	})
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
