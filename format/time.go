package format

// Timestamps are unsigned 32-bit milliseconds and wrap roughly every 49.7
// days. All comparisons treat the value space as a circle: a is "before or
// equal" b when the forward distance from a to b is less than half the range.

// LE reports whether a <= b under wrap-aware ordering.
func LE(a, b uint32) bool {
	return b-a < 0x80000000
}

// GE reports whether a >= b under wrap-aware ordering.
func GE(a, b uint32) bool {
	return LE(b, a)
}

// InRange reports whether t lies in the window [t0, t1]. The window itself
// may wrap (t1 before t0), in which case it covers [t0, max] plus [0, t1].
func InRange(t, t0, t1 uint32) bool {
	if LE(t0, t1) {
		return LE(t0, t) && LE(t, t1)
	}

	return LE(t0, t) || LE(t, t1)
}

// Overlaps reports whether the window [aMin, aMax] intersects [bMin, bMax]
// under wrap-aware containment. Either window may wrap.
func Overlaps(aMin, aMax, bMin, bMax uint32) bool {
	return InRange(aMin, bMin, bMax) || InRange(aMax, bMin, bMax) || InRange(bMin, aMin, aMax)
}
