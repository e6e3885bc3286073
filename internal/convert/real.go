package convert

import (
	"encoding/binary"
	"sync"
)

// Real-only format tables, mirroring shifts4096/magnitudes2048/powers2048/
// scaled65k2048 in convert.c. shifts4096 turns a 12-bit offset-binary sample
// into its absolute distance from center (0..2048, where 2048 occurs only for
// sample value 0 and is clamped to 2047 before indexing); the 2048-entry tables
// turn that into a [0,1] magnitude, its square, and the rounded 16-bit
// scaled magnitude.
var (
	shifts4096    [4096]uint16
	magnitudes2048 [2048]float64
	powers2048     [2048]float64
	scaled65k2048  [2048]uint16
	u16TablesOnce  sync.Once
	u16TablesOK    bool
)

func initU16Tables() error {
	u16TablesOnce.Do(func() {
		for i := range shifts4096 {
			d := i - 2048
			if d < 0 {
				d = -d
			}
			shifts4096[i] = uint16(d)
		}
		for i := range magnitudes2048 {
			m := float64(i) / 2047.0
			magnitudes2048[i] = m
			powers2048[i] = m * m
			scaled65k2048[i] = roundU16(m)
		}
		u16TablesOK = true
	})
	if !u16TablesOK {
		return ErrAllocationFailure
	}
	return nil
}

// convertS16 handles signed 16-bit real-only samples, full scale +/-32767.
// Per spec.md section 3, this is an "I-only" format: magSq = x^2, no Q term.
// The reference converter destructively rescales its input in place; this
// port keeps the same per-sample math but reads from the caller's raw bytes
// without aliasing them, per the scratch-buffer resolution in SPEC_FULL.md.
func convertS16(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		x := int16(binary.LittleEndian.Uint16(in[2*i:]))
		d := int(x)
		if d < 0 {
			d = -d
		}
		idx := d >> 4
		if idx > 2047 {
			idx = 2047
		}
		sumLevel += magnitudes2048[idx]
		sumPower += powers2048[idx]
		magOut[i] = scaled65k2048[idx]
	}
	if outMeanLevel != nil {
		*outMeanLevel = sumLevel / float64(nSamples)
	}
	if outMeanPower != nil {
		*outMeanPower = sumPower / float64(nSamples)
	}
}

// convertU16Offset12 handles unsigned 16-bit real-only samples with a
// 12-bit range centered at 2048, as produced by some offset-binary ADCs.
func convertU16Offset12(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		x := binary.LittleEndian.Uint16(in[2*i:])
		if x > 4095 {
			x = 4095
		}
		idx := shifts4096[x]
		if idx > 2047 {
			idx = 2047
		}
		sumLevel += magnitudes2048[idx]
		sumPower += powers2048[idx]
		magOut[i] = scaled65k2048[idx]
	}
	if outMeanLevel != nil {
		*outMeanLevel = sumLevel / float64(nSamples)
	}
	if outMeanPower != nil {
		*outMeanPower = sumPower / float64(nSamples)
	}
}
