package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantParams(t *testing.T) {
	testCases := []struct {
		name      string
		minV      float32
		maxV      float32
		wantBias  float32
		wantScale float32
	}{
		{name: "unit range", minV: 0, maxV: 65535, wantBias: 32767.5, wantScale: 1},
		{name: "symmetric", minV: -1, maxV: 1, wantBias: 0, wantScale: 2.0 / 65535.0},
		{name: "constant clamps", minV: 5, maxV: 5, wantBias: 5, wantScale: ScaleFloor},
		{name: "inverted treated as constant", minV: 9, maxV: 3, wantBias: 9, wantScale: ScaleFloor},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bias, scale := QuantParams(tc.minV, tc.maxV)
			require.InDelta(t, tc.wantBias, bias, 1e-6)
			require.InDelta(t, tc.wantScale, scale, 1e-12)
			require.Positive(t, scale)
		})
	}
}

func TestQuantize_RoundTripErrorBound(t *testing.T) {
	minV, maxV := float32(-10.0), float32(10.0)
	bias, scale := QuantParams(minV, maxV)

	for i := 0; i < 1000; i++ {
		v := minV + (maxV-minV)*float32(i)/1000
		q, saturated := Quantize(v, bias, scale)
		require.False(t, saturated)

		got := Dequantize(q, bias, scale)
		require.LessOrEqual(t, math.Abs(float64(got-v)), float64(scale)/2+1e-7, "v=%v", v)
	}

	// The top of the range maps to 32767.5, rounds to 32768 and clips.
	q, saturated := Quantize(maxV, bias, scale)
	require.True(t, saturated)
	require.Equal(t, int16(32767), q)
}

func TestQuantize_Saturation(t *testing.T) {
	bias, scale := QuantParams(0, 1)

	q, saturated := Quantize(100, bias, scale)
	require.True(t, saturated)
	require.Equal(t, int16(32767), q)

	q, saturated = Quantize(-100, bias, scale)
	require.True(t, saturated)
	require.Equal(t, int16(-32768), q)
}

func TestQuantize_ConstantBlockNoDivideByZero(t *testing.T) {
	bias, scale := QuantParams(3.5, 3.5)
	q, saturated := Quantize(3.5, bias, scale)
	require.False(t, saturated)
	require.Equal(t, int16(0), q)
	require.InDelta(t, 3.5, Dequantize(q, bias, scale), 1e-6)
}
