package convert

import (
	"encoding/binary"
	"math"
)

func readI16(in []byte, sampleIdx int) int16 {
	return int16(binary.LittleEndian.Uint16(in[2*sampleIdx:]))
}

// convertSC16Generic handles full-scale +/-32767 signed IQ with DC blocking.
func convertSC16Generic(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	z1I, z1Q := state.z1I, state.z1Q
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		I := readI16(in, 2*i)
		Q := readI16(in, 2*i+1)
		fI := float64(I) / 32768.0
		fQ := float64(Q) / 32768.0

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

func convertSC16NoDC(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		I := readI16(in, 2*i)
		Q := readI16(in, 2*i+1)
		fI := float64(I) / 32768.0
		fQ := float64(Q) / 32768.0

		magSq := saturateMag(fI*fI + fQ*fQ)
		mag := math.Sqrt(magSq)
		sumPower += magSq
		sumLevel += mag
		magOut[i] = roundU16(mag)
	}
	if outMeanLevel != nil {
		*outMeanLevel = sumLevel / float64(nSamples)
	}
	if outMeanPower != nil {
		*outMeanPower = sumPower / float64(nSamples)
	}
}

// convertSC16Q11Generic handles the Q11 fixed-point format (full scale
// +/-2047, upper bits ignored), with DC blocking.
func convertSC16Q11Generic(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	z1I, z1Q := state.z1I, state.z1Q
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		I := readI16(in, 2*i) << 4 >> 4
		Q := readI16(in, 2*i+1) << 4 >> 4
		fI := float64(I) / 2048.0
		fQ := float64(Q) / 2048.0

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

func convertSC16Q11NoDC(in []byte, magOut []uint16, nSamples int, state *State, outMeanLevel, outMeanPower *float64) {
	var sumLevel, sumPower float64
	for i := 0; i < nSamples; i++ {
		I := readI16(in, 2*i) << 4 >> 4
		Q := readI16(in, 2*i+1) << 4 >> 4
		fI := float64(I) / 2048.0
		fQ := float64(Q) / 2048.0

		magSq := saturateMag(fI*fI + fQ*fQ)
		mag := math.Sqrt(magSq)
		sumPower += magSq
		sumLevel += mag
		magOut[i] = roundU16(mag)
	}
	if outMeanLevel != nil {
		*outMeanLevel = sumLevel / float64(nSamples)
	}
	if outMeanPower != nil {
		*outMeanPower = sumPower / float64(nSamples)
	}
}
