package convert

import (
	"encoding/binary"
	"math"
	"sync"
)

// uc8Lookup maps the little-endian (I,Q) byte pair directly to a magnitude,
// precomputed once like uc8_lookup in convert.c.
var (
	uc8Lookup     []uint16
	uc8LookupOnce sync.Once
)

func initUC8Lookup() error {
	uc8LookupOnce.Do(func() {
		uc8Lookup = make([]uint16, 256*256)
		for i := 0; i <= 255; i++ {
			for q := 0; q <= 255; q++ {
				fI := (float64(i) - 127.5) / 127.5
				fQ := (float64(q) - 127.5) / 127.5
				magSq := saturateMag(fI*fI + fQ*fQ)
				mag := math.Sqrt(magSq)
				idx := binary.LittleEndian.Uint16([]byte{byte(i), byte(q)})
				uc8Lookup[idx] = roundU16(mag)
			}
		}
	})
	if uc8Lookup == nil {
		return ErrAllocationFailure
	}
	return nil
}

// convertUC8NoDC is the cheap table path used when DC filtering is off.
func convertUC8NoDC(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	var sumLevel, sumPower uint64
	for i := 0; i < nSamples; i++ {
		idx := uint16(in[2*i]) | uint16(in[2*i+1])<<8
		mag := uc8Lookup[idx]
		magOut[i] = mag
		sumLevel += uint64(mag)
		sumPower += uint64(mag) * uint64(mag)
	}
	if outMeanLevel != nil {
		*outMeanLevel = float64(sumLevel) / 65535.0 / float64(nSamples)
	}
	if outMeanPower != nil {
		*outMeanPower = float64(sumPower) / 65535.0 / 65535.0 / float64(nSamples)
	}
}

// convertUC8Generic is the DC-capable float path.
func convertUC8Generic(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	z1I, z1Q := state.z1I, state.z1Q
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		I, Q := in[2*i], in[2*i+1]
		fI := (float64(I) - 127.5) / 127.5
		fQ := (float64(Q) - 127.5) / 127.5

		fI, fQ, z1I, z1Q = dcBlock(fI, fQ, z1I, z1Q, state.dcA, state.dcB)

		magSq := saturateMag(fI*fI + fQ*fQ)
		mag := math.Sqrt(magSq)
		sumPower += magSq
		sumLevel += mag
		magOut[i] = roundU16(mag)
	}
	state.z1I, state.z1Q = z1I, z1Q

	if outMeanLevel != nil {
		*outMeanLevel = sumLevel / float64(nSamples)
	}
	if outMeanPower != nil {
		*outMeanPower = sumPower / float64(nSamples)
	}
}
