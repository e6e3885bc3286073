package demod

// Offsets replaces the pointer arithmetic a C demodulator would use to
// walk a magnitude buffer with a typed view: every symbol position the
// preamble check and peak search touch, expressed once, scaled to the
// capture's samplesPerSymbol. P1..P4 are the preamble's four pulse
// centers; Q1A..Q4B are each pulse's two adjacent quiet companions;
// Q5A..Q5D are extra quiet slots used only for noise-floor averaging,
// not for the strict pulse-shape check.
type Offsets struct {
	P1, P2, P3, P4     int
	Q1A, Q1B           int
	Q2A, Q2B           int
	Q3A, Q3B           int
	Q4A, Q4B           int
	Q5A, Q5B, Q5C, Q5D int
}

// NewOffsets builds the offset table for one samplesPerSymbol value. The
// pulse centers match the preamble bit pattern 1010000101000000 (1-based
// positions of its set bits: 1, 3, 8, 10), pinned exactly by spec.md
// invariant 10. Q4B is pinned to the same symbol as Q3B (9) rather than
// the naive 11, so the widest offset the correlator reads stays P4 (10),
// the one dsp.PreambleOutputLen sizes its output by; see
// internal/dsp/preamble.go for the matching choice on the correlator
// side.
func NewOffsets(samplesPerSymbol int) Offsets {
	s := samplesPerSymbol
	return Offsets{
		P1: 1 * s, P2: 3 * s, P3: 8 * s, P4: 10 * s,
		Q1A: 0 * s, Q1B: 2 * s,
		Q2A: 2 * s, Q2B: 4 * s,
		Q3A: 7 * s, Q3B: 9 * s,
		Q4A: 9 * s, Q4B: 9 * s,
		Q5A: 5 * s, Q5B: 6 * s, Q5C: 14 * s, Q5D: 16 * s,
	}
}

// pulsePairs returns each pulse center paired with its two quiet
// companions, in P1..P4 order, for the pulse-shape check in demod.go.
func (o Offsets) pulsePairs() [4][3]int {
	return [4][3]int{
		{o.P1, o.Q1A, o.Q1B},
		{o.P2, o.Q2A, o.Q2B},
		{o.P3, o.Q3A, o.Q3B},
		{o.P4, o.Q4A, o.Q4B},
	}
}
