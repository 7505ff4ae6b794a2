package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLE(t *testing.T) {
	testCases := []struct {
		name string
		a, b uint32
		want bool
	}{
		{name: "equal", a: 5, b: 5, want: true},
		{name: "simple before", a: 5, b: 10, want: true},
		{name: "simple after", a: 10, b: 5, want: false},
		{name: "across wrap", a: 0xFFFFFFF0, b: 0x10, want: true},
		{name: "across wrap reversed", a: 0x10, b: 0xFFFFFFF0, want: false},
		{name: "half range boundary", a: 0, b: 0x7FFFFFFF, want: true},
		{name: "past half range", a: 0, b: 0x80000000, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, LE(tc.a, tc.b))
			require.Equal(t, tc.want, GE(tc.b, tc.a))
		})
	}
}

func TestInRange(t *testing.T) {
	testCases := []struct {
		name       string
		t, t0, t1  uint32
		want       bool
	}{
		{name: "inside plain window", t: 50, t0: 0, t1: 100, want: true},
		{name: "below plain window", t: 5, t0: 10, t1: 100, want: false},
		{name: "above plain window", t: 101, t0: 10, t1: 100, want: false},
		{name: "bounds inclusive low", t: 10, t0: 10, t1: 100, want: true},
		{name: "bounds inclusive high", t: 100, t0: 10, t1: 100, want: true},
		{name: "wrapped window high side", t: 0xFFFFFFF8, t0: 0xFFFFFFF0, t1: 0x10, want: true},
		{name: "wrapped window low side", t: 0x8, t0: 0xFFFFFFF0, t1: 0x10, want: true},
		{name: "wrapped window outside", t: 0x7FFFFFFF, t0: 0xFFFFFFF0, t1: 0x10, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, InRange(tc.t, tc.t0, tc.t1))
		})
	}
}

func TestOverlaps(t *testing.T) {
	// Plain intersecting windows.
	require.True(t, Overlaps(10, 20, 15, 30))
	require.True(t, Overlaps(15, 30, 10, 20))
	// Containment both ways.
	require.True(t, Overlaps(10, 100, 40, 50))
	require.True(t, Overlaps(40, 50, 10, 100))
	// Disjoint.
	require.False(t, Overlaps(10, 20, 30, 40))
	// A wrapped segment window against a plain query window.
	require.True(t, Overlaps(0xFFFFFF00, 0x100, 0x0, 0x200))
	require.True(t, Overlaps(0xFFFFFF00, 0x100, 0xFFFFFF80, 0xFFFFFFC0))
	require.False(t, Overlaps(0xFFFFFF00, 0x100, 0x1000, 0x2000))
}
