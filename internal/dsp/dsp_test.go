package dsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBoxcar_WideMatchesGeneric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(8, 64).Draw(rt, "n")
		window := rapid.IntRange(1, 6).Draw(rt, "window")
		if window > n {
			window = n
		}
		in := make([]uint16, n)
		for i := range in {
			in[i] = uint16(rapid.IntRange(0, 65535).Draw(rt, "v"))
		}
		outLen := BoxcarOutputLen(n, window)
		a := make([]uint16, outLen)
		b := make([]uint16, outLen)
		boxcarGeneric(in, window, a)
		boxcarWide(in, window, b)
		assert.Equal(rt, a, b, "invariant 8: flavors must agree exactly")
	})
}

func TestPreamble_WideMatchesGeneric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sps := rapid.IntRange(1, 4).Draw(rt, "sps")
		n := rapid.IntRange(20*sps, 40*sps).Draw(rt, "n")
		in := make([]uint16, n)
		for i := range in {
			in[i] = uint16(rapid.IntRange(0, 65535).Draw(rt, "v"))
		}
		outLen := PreambleOutputLen(n, sps)
		a := make([]uint16, outLen)
		b := make([]uint16, outLen)
		preambleGeneric(in, sps, a)
		preambleWide(in, sps, b)
		assert.Equal(rt, a, b)
	})
}

func TestMeanPower_WideMatchesGeneric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 37).Draw(rt, "n")
		in := make([]uint16, n)
		for i := range in {
			in[i] = uint16(rapid.IntRange(0, 65535).Draw(rt, "v"))
		}
		assert.InDelta(rt, meanPowerGeneric(in), meanPowerWide(in), 1e-9)
	})
}

func TestMagnitudeUC8_WideMatchesGeneric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(rt, "n")
		raw := make([]byte, 2*n)
		for i := range raw {
			raw[i] = byte(rapid.IntRange(0, 255).Draw(rt, "b"))
		}
		a := make([]uint16, n)
		b := make([]uint16, n)
		magnitudeUC8Generic(raw, a, n)
		magnitudeUC8Wide(raw, b, n)
		assert.Equal(rt, a, b)
	})
}

// TestSetWisdom_StableReorder grounds invariant 5: named implementations
// sort to the front in the given order, everything else keeps its
// relative order behind them.
func TestSetWisdom_StableReorder(t *testing.T) {
	r := NewRegistry([]Entry[func() int]{
		{Name: "a", Fn: func() int { return 1 }},
		{Name: "b", Fn: func() int { return 2 }},
		{Name: "c", Fn: func() int { return 3 }},
		{Name: "d", Fn: func() int { return 4 }},
	})

	r.SetWisdomByNames([]string{"c", "a"})
	ranks := r.Ranks()
	assert.Less(t, ranks["c"], ranks["a"])
	assert.Less(t, ranks["a"], ranks["b"])
	assert.Less(t, ranks["b"], ranks["d"])
}

func TestRegistry_SelectCachesUntilWisdom(t *testing.T) {
	calls := 0
	r := NewRegistry([]Entry[func() int]{
		{Name: "only", Fn: func() int { calls++; return 7 }},
	})
	got := r.Select()
	got()
	got2 := r.Select()
	got2()
	assert.Equal(t, 2, calls)

	r.SetWisdomByNames([]string{"only"})
	got3 := r.Select()
	got3()
	assert.Equal(t, 3, calls)
}

func TestRegistry_PanicsWithNoSatisfyingEntry(t *testing.T) {
	r := NewRegistry([]Entry[func() int]{
		{Name: "never", Fn: func() int { return 1 }, Probe: func() bool { return false }},
	})
	assert.Panics(t, func() { r.Select() })
}

func TestReadWisdomFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wisdom.txt")
	content := "# comment\nboxcar_u16 boxcar_u16_generic\nboxcar_u16 boxcar_u16_wide\n\nmean_power_u16 mean_power_u16_generic\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, ReadWisdomFile(path))
	ranks := boxcarRegistry.Ranks()
	assert.Less(t, ranks["boxcar_u16_generic"], ranks["boxcar_u16_wide"])
}

func TestBoxcar_KnownValues(t *testing.T) {
	in := []uint16{10, 20, 30, 40, 50}
	out := make([]uint16, BoxcarOutputLen(len(in), 3))
	BoxcarU16(in, 3, out)
	require.Len(t, out, 3)
	assert.Equal(t, uint16(20), out[0]) // (10+20+30)/3
	assert.Equal(t, uint16(30), out[1]) // (20+30+40)/3
	assert.Equal(t, uint16(40), out[2]) // (30+40+50)/3
}
