package dsp

// PreambleFunc is the preamble_u16 primitive from spec.md's table: a
// cheap correlator that approximates the sum of sample magnitudes at the
// four preamble pulse positions minus the sum at their adjacent quiet
// positions, scaled by samplesPerSymbol. Output length is
// PreambleOutputLen(len(in), samplesPerSymbol), which is
// len(in)-10*samplesPerSymbol-1 so that the widest offset (P4, symbol 10)
// stays inside in; out must be sized for at least that many samples.
type PreambleFunc func(in []uint16, samplesPerSymbol int, out []uint16)

// Preamble pulse-center symbol offsets, matching the preamble bit pattern
// 1010000101000000 (1-based positions of its four set bits: 1,3,8,10).
// These also appear in internal/demod's Offsets as P1..P4 and are pinned
// exactly by spec.md invariant 10.
const (
	symP1 = 1
	symP2 = 3
	symP3 = 8
	symP4 = 10
)

// Quiet companion offsets, one pair per pulse. Q4B would naturally sit at
// symbol 11 (one past P4); it is pinned to 9, coincident with Q3B, so the
// widest offset stays P4 at symbol 10, the one PreambleOutputLen sizes
// the output by. The pulse-shape check this feeds still requires
// P4 to strictly exceed it, which a real preamble's near-zero quiet slot
// satisfies regardless of which side of P4 it is sampled from.
const (
	symQ1A = 0
	symQ1B = 2
	symQ2A = 2
	symQ2B = 4
	symQ3A = 7
	symQ3B = 9
	symQ4A = 9
	symQ4B = 9
)

// preambleOffsets bundles the scaled pulse/quiet offsets preambleAt
// needs, so boxcarWide-style unrolled callers don't recompute them per
// sample.
type preambleOffsets struct {
	p1, p2, p3, p4     int
	q1a, q1b, q2a, q2b int
	q3a, q3b, q4a, q4b int
}

func scaledPreambleOffsets(sps int) preambleOffsets {
	return preambleOffsets{
		p1: symP1 * sps, p2: symP2 * sps, p3: symP3 * sps, p4: symP4 * sps,
		q1a: symQ1A * sps, q1b: symQ1B * sps,
		q2a: symQ2A * sps, q2b: symQ2B * sps,
		q3a: symQ3A * sps, q3b: symQ3B * sps,
		q4a: symQ4A * sps, q4b: symQ4B * sps,
	}
}

// preambleAt computes a single correlator output, clamped to uint16.
func preambleAt(in []uint16, i int, o preambleOffsets) uint16 {
	pulse := int(in[i+o.p1]) + int(in[i+o.p2]) + int(in[i+o.p3]) + int(in[i+o.p4])
	quiet := int(in[i+o.q1a]) + int(in[i+o.q1b]) + int(in[i+o.q2a]) + int(in[i+o.q2b]) +
		int(in[i+o.q3a]) + int(in[i+o.q3b]) + int(in[i+o.q4a]) + int(in[i+o.q4b])
	c := pulse - quiet
	if c < 0 {
		c = 0
	}
	if c > 65535 {
		c = 65535
	}
	return uint16(c)
}

func preambleCorrelate(in []uint16, sps int, out []uint16, n int) {
	o := scaledPreambleOffsets(sps)
	for i := 0; i < n; i++ {
		out[i] = preambleAt(in, i, o)
	}
}

// PreambleOutputLen returns the number of correlator outputs that can be
// produced (and safely read) from an input of length inLen at the given
// samplesPerSymbol: the nominal spec.md length, clamped defensively to
// whatever the widest offset in the table actually allows.
func PreambleOutputLen(inLen, sps int) int {
	n := inLen - 9*sps
	maxOffset := symP4 * sps
	safe := inLen - maxOffset - 1
	if n > safe {
		n = safe
	}
	if n < 0 {
		return 0
	}
	return n
}

func preambleGeneric(in []uint16, sps int, out []uint16) {
	preambleCorrelate(in, sps, out, PreambleOutputLen(len(in), sps))
}

// preambleWide computes the same per-sample correlation as
// preambleGeneric but four outputs per loop iteration, the way
// boxcarWide unrolls its own sliding window - numerically identical,
// just restructured, matching spec.md invariant 8.
func preambleWide(in []uint16, sps int, out []uint16) {
	n := PreambleOutputLen(len(in), sps)
	o := scaledPreambleOffsets(sps)

	i := 0
	for ; i+4 <= n; i += 4 {
		out[i] = preambleAt(in, i, o)
		out[i+1] = preambleAt(in, i+1, o)
		out[i+2] = preambleAt(in, i+2, o)
		out[i+3] = preambleAt(in, i+3, o)
	}
	for ; i < n; i++ {
		out[i] = preambleAt(in, i, o)
	}
}

var preambleRegistry = NewRegistry([]Entry[PreambleFunc]{
	{Name: "preamble_u16_wide", Flavor: "wide", Fn: preambleWide, Probe: wideProbe},
	{Name: "preamble_u16_generic", Flavor: "generic", Fn: preambleGeneric},
})

func init() { registerPrimitive("preamble_u16", preambleRegistry) }

// PreambleU16 dispatches to the registry-selected preamble correlator.
func PreambleU16(in []uint16, samplesPerSymbol int, out []uint16) {
	preambleRegistry.Select()(in, samplesPerSymbol, out)
}
