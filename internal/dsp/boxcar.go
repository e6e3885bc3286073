package dsp

// BoxcarFunc is the boxcar_u16 primitive from spec.md's table: a sliding
// rectangular-window average over magnitude samples, used to smooth the
// magnitude buffer before preamble correlation. Output length is
// len(in)-window+1; out must be sized for at least that many samples.
type BoxcarFunc func(in []uint16, window int, out []uint16)

func boxcarGeneric(in []uint16, window int, out []uint16) {
	n := len(in) - window + 1
	if n <= 0 || window <= 0 {
		return
	}
	var sum uint32
	for i := 0; i < window; i++ {
		sum += uint32(in[i])
	}
	out[0] = uint16(sum / uint32(window))
	for i := 1; i < n; i++ {
		sum += uint32(in[i+window-1]) - uint32(in[i-1])
		out[i] = uint16(sum / uint32(window))
	}
}

// boxcarWide computes the same running sum but updates four output
// positions per iteration before dividing, so the same additions and
// subtractions happen in the same order as boxcarGeneric - numerically
// identical, just restructured, matching spec.md invariant 8.
func boxcarWide(in []uint16, window int, out []uint16) {
	n := len(in) - window + 1
	if n <= 0 || window <= 0 {
		return
	}
	var sum uint32
	for i := 0; i < window; i++ {
		sum += uint32(in[i])
	}
	out[0] = uint16(sum / uint32(window))

	i := 1
	for ; i+4 <= n; i += 4 {
		for k := 0; k < 4; k++ {
			j := i + k
			sum += uint32(in[j+window-1]) - uint32(in[j-1])
			out[j] = uint16(sum / uint32(window))
		}
	}
	for ; i < n; i++ {
		sum += uint32(in[i+window-1]) - uint32(in[i-1])
		out[i] = uint16(sum / uint32(window))
	}
}

var boxcarRegistry = NewRegistry([]Entry[BoxcarFunc]{
	{Name: "boxcar_u16_wide", Flavor: "wide", Fn: boxcarWide, Probe: wideProbe},
	{Name: "boxcar_u16_generic", Flavor: "generic", Fn: boxcarGeneric},
})

func init() { registerPrimitive("boxcar_u16", boxcarRegistry) }

// BoxcarU16 dispatches to the registry-selected boxcar smoother.
func BoxcarU16(in []uint16, window int, out []uint16) {
	boxcarRegistry.Select()(in, window, out)
}

// BoxcarOutputLen returns the number of samples BoxcarU16 writes for a
// given input length and window.
func BoxcarOutputLen(inLen, window int) int {
	n := inLen - window + 1
	if n < 0 {
		return 0
	}
	return n
}
