package demod

import (
	"go1090/internal/dsp"
	"go1090/internal/fifo"
)

// Result summarizes one Demodulate call over a magnitude buffer.
type Result struct {
	CandidatesSeen int
	Accepted       int
	Rejected       int
}

// preambleSymbols is the number of half-bit symbols the preamble pattern
// 1010000101000000 occupies; the first message bit starts immediately
// after it.
const preambleSymbols = 16

// Demodulate runs the consolidated preamble-detection and bit-slicing
// pipeline over one magnitude buffer: boxcar smoothing, preamble
// correlation, a threshold gate, pulse-shape validation, a local peak
// search refined by ctx.Strictness, PPM bit-slicing, and finally the
// Collaborator calls that turn an accepted frame into a delivered
// message. It is designed to run on a single consumer goroutine per
// spec.md section 5's single-threaded producer/consumer model; buf
// itself is never mutated.
func Demodulate(ctx *Context, buf *fifo.Buffer) Result {
	sps := ctx.SamplesPerSymbol
	mag := buf.Data
	validLength := buf.ValidLength
	if validLength > len(mag) {
		validLength = len(mag)
	}

	saLen := dsp.BoxcarOutputLen(len(mag), sps)
	sa := make([]uint16, saLen)
	dsp.BoxcarU16(mag, sps, sa)

	scLen := dsp.PreambleOutputLen(saLen, sps)
	sc := make([]uint16, scLen)
	dsp.PreambleU16(sa, sps, sc)

	var res Result
	limit := validLength
	if limit > scLen {
		limit = scLen
	}
	if limit > saLen {
		limit = saLen
	}

	ticksPerSample := 0.0
	if buf.SampleRate > 0 {
		ticksPerSample = 12_000_000.0 / buf.SampleRate
	}

	for j := 0; j < limit; j++ {
		if sc[j] < ctx.PreambleThreshold {
			continue
		}
		res.CandidatesSeen++

		if !pulseShapeOK(sa, j, ctx.Offsets) {
			res.Rejected++
			continue
		}

		best := peakSearch(sc, j, ctx.PeakSearchWindow)
		if !pulseShapeOK(sa, best, ctx.Offsets) {
			res.Rejected++
			continue
		}
		if !strictnessOK(sa, sc, best, ctx.Strictness, ctx.Offsets) {
			res.Rejected++
			continue
		}

		mark := preambleAvgMark(sa, best, ctx.Offsets)

		msgBase := best + preambleSymbols*sps
		var df, nBits, msgOffset int
		var bits []byte
		accepted := false
		for i := ctx.MessageSearchLow; i <= ctx.MessageSearchHigh; i++ {
			msgStart := msgBase + i
			candDF := peekDF(sa, msgStart, sps)
			if candDF < 0 {
				continue
			}
			candBits := sliceMessageBits(sa, msgStart, sps, MessageLength(candDF), ctx.MarkLimits, mark)
			if candBits == nil {
				continue
			}
			if ctx.Collaborator.ScoreMessage(candBits, candDF) < 0 {
				continue
			}
			df, nBits, bits, msgOffset = candDF, MessageLength(candDF), candBits, i
			accepted = true
			break
		}
		if !accepted {
			res.Rejected++
			continue
		}

		avgSpace := localNoise(sa, best, ctx.Offsets)
		signal, noise := signalNoiseLevels(mark, avgSpace)

		// endOfMessageSample per spec.md section 4.4 step 5: best already
		// stands in for the spec's "j + best" (peakSearch operates on
		// absolute sample indices, not offsets from j), so only the
		// preamble length, the winning search offset, and the 56-bit
		// message-body span need adding.
		endOfMessageSample := msgBase + msgOffset + 56*2*sps
		meta := Meta{
			Timestamp12MHz: assembleTimestamp(buf.FirstSampleTimestamp, endOfMessageSample, ticksPerSample),
			SignalLevel:    signal,
			NoiseLevel:     noise,
			Strictness:     ctx.Strictness,
		}

		msg, err := ctx.Collaborator.DecodeMessage(bits, df, meta)
		if err != nil {
			res.Rejected++
			continue
		}
		ctx.Collaborator.UseMessage(msg)
		res.Accepted++

		// Back off 8 symbols past the consumed frame (spec.md section 4.4
		// step 8) so the next iteration can still catch a second preamble
		// overlapping the tail of this one, without re-decoding the same
		// frame from its own trailing samples. j must never regress
		// (spec.md section 9's design note).
		msgSampleLen := nBits * 2 * sps
		next := best + preambleSymbols*sps + msgSampleLen - 8*sps
		if next < j+1 {
			next = j + 1
		}
		j = next - 1
	}
	return res
}

// pulseShapeOK requires every preamble pulse to strictly exceed both of
// its adjacent quiet companions, per spec.md section 4.4b.
func pulseShapeOK(sa []uint16, j int, o Offsets) bool {
	if j < 0 {
		return false
	}
	for _, pair := range o.pulsePairs() {
		p, qa, qb := pair[0], pair[1], pair[2]
		if j+p >= len(sa) || j+qa >= len(sa) || j+qb >= len(sa) {
			return false
		}
		pv := sa[j+p]
		if pv <= sa[j+qa] || pv <= sa[j+qb] {
			return false
		}
	}
	return true
}

// peakSearch looks at most window samples either side of j for the
// correlator's local maximum, so a candidate that triggered the
// threshold gate a sample or two early or late still locks onto its true
// peak before bit-slicing.
func peakSearch(sc []uint16, j, window int) int {
	lo := j - window
	if lo < 0 {
		lo = 0
	}
	hi := j + window
	if hi >= len(sc) {
		hi = len(sc) - 1
	}
	best := j
	bestVal := sc[j]
	for i := lo; i <= hi; i++ {
		if sc[i] > bestVal {
			bestVal = sc[i]
			best = i
		}
	}
	return best
}

// strictnessOK applies whichever of HALFBIT/STRONG/MAX bits ctx.Strictness
// sets, each adding a further requirement before a candidate preamble is
// accepted.
func strictnessOK(sa, sc []uint16, best int, s Strictness, o Offsets) bool {
	if s.has(StrictHalfBit) {
		if best > 0 && sc[best-1] >= sc[best] {
			return false
		}
		if best+1 < len(sc) && sc[best+1] > sc[best] {
			return false
		}
	}
	if s.has(StrictStrong) {
		noise := localNoise(sa, best, o)
		for _, p := range [4]int{o.P1, o.P2, o.P3, o.P4} {
			idx := best + p
			if idx >= len(sa) || float64(sa[idx]) < 1.5*noise {
				return false
			}
		}
	}
	if s.has(StrictMax) {
		for _, pair := range o.pulsePairs() {
			p, qa, qb := pair[0], pair[1], pair[2]
			idxP, idxA, idxB := best+p, best+qa, best+qb
			if idxP >= len(sa) || idxA >= len(sa) || idxB >= len(sa) {
				return false
			}
			quiet := (float64(sa[idxA]) + float64(sa[idxB])) / 2
			if float64(sa[idxP]) < 2*quiet+1 {
				return false
			}
		}
	}
	return true
}

func localNoise(sa []uint16, best int, o Offsets) float64 {
	idxs := [4]int{o.Q5A, o.Q5B, o.Q5C, o.Q5D}
	var sum float64
	var n int
	for _, q := range idxs {
		idx := best + q
		if idx >= 0 && idx < len(sa) {
			sum += float64(sa[idx])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// preambleAvgMark averages the smoothed magnitude at the preamble's four
// pulse centers (spec.md section 4.4e): the reference "mark" level
// SliceBitsMarked compares each half-bit slot against when mark-limits
// are enabled, and one of the two inputs to signalNoiseLevels.
func preambleAvgMark(sa []uint16, best int, o Offsets) float64 {
	var sum float64
	var n int
	for _, p := range [4]int{o.P1, o.P2, o.P3, o.P4} {
		idx := best + p
		if idx >= 0 && idx < len(sa) {
			sum += float64(sa[idx])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// sliceMessageBits picks SliceBits or its mark-limit variant per
// ctx.MarkLimits.
func sliceMessageBits(sa []uint16, msgStart, sps, nBits int, markLimits bool, mark float64) []byte {
	if markLimits {
		return SliceBitsMarked(sa, msgStart, sps, nBits, mark)
	}
	return SliceBits(sa, msgStart, sps, nBits)
}

func peekDF(sa []uint16, msgStart, sps int) int {
	bits := SliceBits(sa, msgStart, sps, 8)
	if bits == nil {
		return -1
	}
	return ExtractDF(bits)
}

// signalNoiseLevels converts the preamble's average mark and space
// levels into the [0,1] power estimates spec.md section 4.4 step 6
// defines: signalLevel = (preambleAvgMark/65535)^2, noiseLevel =
// (preambleAvgSpace/65535)^2.
func signalNoiseLevels(avgMark, avgSpace float64) (signal, noise float64) {
	m := avgMark / 65535
	n := avgSpace / 65535
	return m * m, n * n
}

func assembleTimestamp(base uint64, sampleIdx int, ticksPerSample float64) uint64 {
	if ticksPerSample <= 0 {
		return base
	}
	return base + uint64(float64(sampleIdx)*ticksPerSample+0.5)
}
