package util

import "golang.org/x/exp/constraints"

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// MinOf returns the smallest element of xs, or the zero value if xs is empty.
func MinOf[T constraints.Ordered](xs []T) T {
	var rv T
	for i, x := range xs {
		if i == 0 || x < rv {
			rv = x
		}
	}
	return rv
}

// Sum returns the sum of xs.
func Sum[T constraints.Integer | constraints.Float](xs []T) T {
	var rv T
	for _, x := range xs {
		rv += x
	}
	return rv
}

// Abs returns the absolute value of x.
func Abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
