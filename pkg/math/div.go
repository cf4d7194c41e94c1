package math

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// DivRoundUp divides, rounding any remainder up.
func DivRoundUp[T Integer](a, b T) T {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// AlignUp rounds `a` up to the next multiple of `b`.
func AlignUp[T Integer](a, b T) T {
	return DivRoundUp(a, b) * b
}
