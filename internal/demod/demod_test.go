package demod

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go1090/internal/fifo"
)

type fakeCollaborator struct {
	scoreFn  func(bits []byte, df int) int
	decodeFn func(bits []byte, df int, meta Meta) (Message, error)
	used     []Message
}

func (f *fakeCollaborator) ScoreMessage(bits []byte, df int) int {
	if f.scoreFn != nil {
		return f.scoreFn(bits, df)
	}
	return 0
}

func (f *fakeCollaborator) DecodeMessage(bits []byte, df int, meta Meta) (Message, error) {
	if f.decodeFn != nil {
		return f.decodeFn(bits, df, meta)
	}
	return meta, nil
}

func (f *fakeCollaborator) UseMessage(msg Message) {
	f.used = append(f.used, msg)
}

// buildSyntheticCapture lays down one clean preamble (sps=1) at sample 0
// against a uniform low baseline, producing a 56-bit, all-zero-bit
// DF=0 message body right after it.
func buildSyntheticCapture(n int) []uint16 {
	mag := make([]uint16, n)
	for i := range mag {
		mag[i] = 50
	}
	o := NewOffsets(1)
	for _, p := range [4]int{o.P1, o.P2, o.P3, o.P4} {
		mag[p] = 2000
	}
	return mag
}

func TestDemodulate_AcceptsCleanPreamble(t *testing.T) {
	mag := buildSyntheticCapture(140)
	collab := &fakeCollaborator{}

	ctx := &Context{
		SamplesPerSymbol:  1,
		Offsets:           NewOffsets(1),
		Strictness:        StrictHalfBit,
		PreambleThreshold: 1000,
		PeakSearchWindow:  2,
		Collaborator:      collab,
	}
	buf := &fifo.Buffer{Data: mag, ValidLength: len(mag), SampleRate: 2_000_000}

	res := Demodulate(ctx, buf)
	require.GreaterOrEqual(t, res.Accepted, 1)
	require.Len(t, collab.used, res.Accepted)

	meta, ok := collab.used[0].(Meta)
	require.True(t, ok)
	assert.Equal(t, StrictHalfBit, meta.Strictness)
}

func TestDemodulate_RejectsBelowThreshold(t *testing.T) {
	mag := buildSyntheticCapture(140)
	collab := &fakeCollaborator{}
	ctx := &Context{
		SamplesPerSymbol:  1,
		Offsets:           NewOffsets(1),
		Strictness:        StrictHalfBit,
		PreambleThreshold: 60000, // above anything this capture can produce
		PeakSearchWindow:  2,
		Collaborator:      collab,
	}
	buf := &fifo.Buffer{Data: mag, ValidLength: len(mag), SampleRate: 2_000_000}

	res := Demodulate(ctx, buf)
	assert.Equal(t, 0, res.Accepted)
	assert.Empty(t, collab.used)
}

func TestDemodulate_ScoreMessageRejectionSurfacesAsRejected(t *testing.T) {
	mag := buildSyntheticCapture(140)
	collab := &fakeCollaborator{scoreFn: func(bits []byte, df int) int { return -1 }}
	ctx := &Context{
		SamplesPerSymbol:  1,
		Offsets:           NewOffsets(1),
		Strictness:        StrictHalfBit,
		PreambleThreshold: 1000,
		PeakSearchWindow:  2,
		Collaborator:      collab,
	}
	buf := &fifo.Buffer{Data: mag, ValidLength: len(mag), SampleRate: 2_000_000}

	res := Demodulate(ctx, buf)
	assert.Equal(t, 0, res.Accepted)
	assert.GreaterOrEqual(t, res.Rejected, 1)
}

func TestDemodulate_DecodeErrorSurfacesAsRejected(t *testing.T) {
	mag := buildSyntheticCapture(140)
	collab := &fakeCollaborator{decodeFn: func(bits []byte, df int, meta Meta) (Message, error) {
		return nil, errors.New("bad crc")
	}}
	ctx := &Context{
		SamplesPerSymbol:  1,
		Offsets:           NewOffsets(1),
		Strictness:        StrictHalfBit,
		PreambleThreshold: 1000,
		PeakSearchWindow:  2,
		Collaborator:      collab,
	}
	buf := &fifo.Buffer{Data: mag, ValidLength: len(mag), SampleRate: 2_000_000}

	res := Demodulate(ctx, buf)
	assert.Equal(t, 0, res.Accepted)
	assert.Empty(t, collab.used)
}

func TestSliceBits_ExtractsDF(t *testing.T) {
	sa := make([]uint16, 40)
	for i := range sa {
		sa[i] = 10
	}
	// bit 0 (DF's MSB) = 1: lo (sa[0]) > hi (sa[1])
	sa[0] = 100
	sa[1] = 10
	bits := SliceBits(sa, 0, 1, 8)
	require.NotNil(t, bits)
	assert.Equal(t, 16, ExtractDF(bits)) // 10000 -> 16
}

func TestSliceBits_ReturnsNilWhenTooShort(t *testing.T) {
	sa := make([]uint16, 4)
	assert.Nil(t, SliceBits(sa, 0, 1, 56))
}

func TestPulseShapeOK(t *testing.T) {
	o := NewOffsets(1)
	mag := buildSyntheticCapture(40)
	assert.True(t, pulseShapeOK(mag, 0, o))

	flat := make([]uint16, 40)
	for i := range flat {
		flat[i] = 50
	}
	assert.False(t, pulseShapeOK(flat, 0, o))
}

func TestPeakSearch_FindsLocalMax(t *testing.T) {
	sc := []uint16{1, 2, 9, 3, 1}
	assert.Equal(t, 2, peakSearch(sc, 1, 2))
	assert.Equal(t, 2, peakSearch(sc, 3, 1))
}

func TestAssembleTimestamp(t *testing.T) {
	ts := assembleTimestamp(1000, 100, 6.0) // 6 ticks per sample
	assert.Equal(t, uint64(1000+600), ts)
	assert.Equal(t, uint64(1000), assembleTimestamp(1000, 100, 0))
}

func TestMessageLength(t *testing.T) {
	assert.Equal(t, 56, MessageLength(0))
	assert.Equal(t, 56, MessageLength(15))
	assert.Equal(t, 112, MessageLength(16))
	assert.Equal(t, 112, MessageLength(17))
}

func TestSliceBitsMarked_NoMarkMatchesSliceBits(t *testing.T) {
	sa := make([]uint16, 40)
	for i := range sa {
		sa[i] = 10
	}
	sa[0] = 100
	sa[1] = 10
	plain := SliceBits(sa, 0, 1, 8)
	marked := SliceBitsMarked(sa, 0, 1, 8, 0)
	assert.Equal(t, plain, marked)
}

func TestSliceBitsMarked_BreaksTieTowardsTheInRangeSlot(t *testing.T) {
	sa := make([]uint16, 8)
	// a slightly below b, so a plain a>b comparison would read 0, but a
	// sits inside the mark window and b does not: the mark-limit override
	// should force the bit to 1.
	sa[0], sa[1] = 99, 100
	bits := SliceBitsMarked(sa, 0, 1, 1, 70.5)
	require.NotNil(t, bits)
	assert.Equal(t, byte(0x80), bits[0])
}

// TestDemodulate_MessageSearchWindowTriesEveryOffset checks that a
// MessageSearchLow/High wider than zero makes Demodulate retry
// ScoreMessage at every offset in the window for a candidate whose
// nominal origin is rejected, and that a zero-width window gives up
// after the single nominal attempt.
func TestDemodulate_MessageSearchWindowTriesEveryOffset(t *testing.T) {
	mag := buildSyntheticCapture(160)

	runWithWindow := func(low, high int) (accepted int, offsetsTried []int) {
		collab := &fakeCollaborator{scoreFn: func(bits []byte, df int) int {
			return -1 // reject every offset; we only care how many were tried
		}}
		callCount := 0
		wrapped := &fakeCollaborator{scoreFn: func(bits []byte, df int) int {
			callCount++
			return collab.scoreFn(bits, df)
		}}
		ctx := &Context{
			SamplesPerSymbol:  1,
			Offsets:           NewOffsets(1),
			Strictness:        StrictHalfBit,
			PreambleThreshold: 1000,
			PeakSearchWindow:  2,
			MessageSearchLow:  low,
			MessageSearchHigh: high,
			Collaborator:      wrapped,
		}
		buf := &fifo.Buffer{Data: mag, ValidLength: len(mag), SampleRate: 2_000_000}
		res := Demodulate(ctx, buf)
		return res.Accepted, []int{callCount}
	}

	_, zeroWindowCalls := runWithWindow(0, 0)
	_, wideWindowCalls := runWithWindow(-1, 1)
	assert.Less(t, zeroWindowCalls[0], wideWindowCalls[0])
}
