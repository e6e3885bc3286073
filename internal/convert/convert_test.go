package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestInit_UnsupportedCombination(t *testing.T) {
	_, _, err := Init(Format(99), 2400000, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedCombination)
}

func TestUC8_NoDC_MatchesGeneric(t *testing.T) {
	// Build a buffer of IQ pairs and check the table path agrees with the
	// float path to within rounding (invariant 8 - dispatcher idempotence
	// restated for the converter registry's two UC8 rows).
	raw := make([]byte, 0, 64)
	for i := 0; i < 32; i++ {
		raw = append(raw, byte(64+i), byte(190-i))
	}
	n := len(raw) / 2

	fnTable, stateTable, err := Init(UC8, 2400000, false)
	require.NoError(t, err)
	outTable := make([]uint16, n)
	fnTable(raw, outTable, n, stateTable, nil, nil)

	fnFloat, stateFloat, err := Init(UC8, 2400000, true)
	require.NoError(t, err)
	// zero the DC filter's effect so it's directly comparable to the nodc path
	stateFloat.dcA = 0
	stateFloat.dcB = 1
	outFloat := make([]uint16, n)
	fnFloat(raw, outFloat, n, stateFloat, nil, nil)

	for i := range outTable {
		diff := int(outTable[i]) - int(outFloat[i])
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqualf(t, diff, 2, "sample %d: table=%d float=%d", i, outTable[i], outFloat[i])
	}
}

func TestUC8_MeanLevel_NoDC(t *testing.T) {
	raw := []byte{127, 127, 255, 127, 0, 127, 127, 255}
	n := 4
	fn, state, err := Init(UC8, 2400000, false)
	require.NoError(t, err)
	out := make([]uint16, n)
	var meanLevel, meanPower float64
	fn(raw, out, n, state, &meanLevel, &meanPower)

	var sum float64
	for _, v := range out {
		sum += float64(v)
	}
	want := sum / 65535.0 / float64(n)
	assert.InDelta(t, want, meanLevel, 1e-6)
}

// TestMagnitudeBound checks invariant 1 from spec.md section 8: converter
// output approximates min(1, sqrt(fI^2+fQ^2)) within 2 LSBs, for the UC8
// no-DC table path.
func TestMagnitudeBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		i8 := rapid.IntRange(0, 255).Draw(rt, "i")
		q8 := rapid.IntRange(0, 255).Draw(rt, "q")

		fn, state, err := Init(UC8, 2400000, false)
		require.NoError(t, err)
		out := make([]uint16, 1)
		fn([]byte{byte(i8), byte(q8)}, out, 1, state, nil, nil)

		fI := (float64(i8) - 127.5) / 127.5
		fQ := (float64(q8) - 127.5) / 127.5
		want := math.Min(1, math.Sqrt(fI*fI+fQ*fQ))
		got := float64(out[0]) / 65535.0
		assert.LessOrEqual(rt, math.Abs(got-want), 2.0/65535.0+1e-9)
	})
}

func TestS16_DoesNotMutateInput(t *testing.T) {
	raw := []byte{0x00, 0x80, 0xFF, 0x7F} // -32768, 32767 little-endian
	cp := append([]byte(nil), raw...)
	fn, state, err := Init(S16, 2400000, false)
	require.NoError(t, err)
	out := make([]uint16, 2)
	fn(raw, out, 2, state, nil, nil)
	assert.Equal(t, cp, raw, "converter must not mutate caller's raw buffer")
}

func TestU16Offset12_ZeroAtCenter(t *testing.T) {
	raw := []byte{0x00, 0x08} // 2048 little-endian
	fn, state, err := Init(U16Offset12, 2400000, false)
	require.NoError(t, err)
	out := make([]uint16, 1)
	fn(raw, out, 1, state, nil, nil)
	assert.Equal(t, uint16(0), out[0])
}
