package dsp

import (
	"encoding/binary"
	"math"
	"sync"
)

// MagnitudeFunc matches the magnitude_* primitive signature from spec.md's
// primitive table: raw interleaved IQ bytes in, 16-bit magnitude samples
// out, no DC state - these are the stateless kernels the registry
// dispatches over, independent of internal/convert's DC-aware factory.
type MagnitudeFunc func(in []byte, out []uint16, n int)

// MagnitudePowerFunc additionally reduces mean level and mean power,
// matching magnitude_power_uc8 in spec.md's primitive table.
type MagnitudePowerFunc func(in []byte, out []uint16, n int, meanLevel, meanPower *float64)

var (
	uc8Lookup     []uint16
	uc8LookupOnce sync.Once
)

func initUC8Lookup() {
	uc8LookupOnce.Do(func() {
		uc8Lookup = make([]uint16, 256*256)
		for i := range uc8Lookup {
			iv := i & 0xff
			qv := (i >> 8) & 0xff
			fI := (float64(iv) - 127.5) / 127.5
			fQ := (float64(qv) - 127.5) / 127.5
			m := math.Min(1, math.Sqrt(fI*fI+fQ*fQ))
			uc8Lookup[i] = uint16(m*65535.0 + 0.5)
		}
	})
}

func magnitudeUC8Generic(in []byte, out []uint16, n int) {
	initUC8Lookup()
	for i := 0; i < n; i++ {
		idx := int(in[2*i]) | int(in[2*i+1])<<8
		out[i] = uc8Lookup[idx]
	}
}

func magnitudeUC8Wide(in []byte, out []uint16, n int) {
	initUC8Lookup()
	i := 0
	for ; i+4 <= n; i += 4 {
		for k := 0; k < 4; k++ {
			j := i + k
			idx := int(in[2*j]) | int(in[2*j+1])<<8
			out[j] = uc8Lookup[idx]
		}
	}
	for ; i < n; i++ {
		idx := int(in[2*i]) | int(in[2*i+1])<<8
		out[i] = uc8Lookup[idx]
	}
}

var uc8Registry = NewRegistry([]Entry[MagnitudeFunc]{
	{Name: "magnitude_uc8_wide", Flavor: "wide", Fn: magnitudeUC8Wide, Probe: wideProbe},
	{Name: "magnitude_uc8_generic", Flavor: "generic", Fn: magnitudeUC8Generic},
})

func init() { registerPrimitive("magnitude_uc8", uc8Registry) }

// MagnitudeUC8 dispatches to the registry-selected implementation of the
// UC8 magnitude kernel.
func MagnitudeUC8(in []byte, out []uint16, n int) {
	uc8Registry.Select()(in, out, n)
}

func magnitudePowerUC8Generic(in []byte, out []uint16, n int, meanLevel, meanPower *float64) {
	initUC8Lookup()
	var sumLevel, sumPower float64
	for i := 0; i < n; i++ {
		idx := int(in[2*i]) | int(in[2*i+1])<<8
		v := uc8Lookup[idx]
		out[i] = v
		f := float64(v) / 65535.0
		sumLevel += f
		sumPower += f * f
	}
	if meanLevel != nil {
		*meanLevel = sumLevel / float64(n)
	}
	if meanPower != nil {
		*meanPower = sumPower / float64(n)
	}
}

var uc8PowerRegistry = NewRegistry([]Entry[MagnitudePowerFunc]{
	{Name: "magnitude_power_uc8_generic", Flavor: "generic", Fn: magnitudePowerUC8Generic},
})

func init() { registerPrimitive("magnitude_power_uc8", uc8PowerRegistry) }

// MagnitudePowerUC8 dispatches to the registry-selected UC8 magnitude +
// power-reduction kernel.
func MagnitudePowerUC8(in []byte, out []uint16, n int, meanLevel, meanPower *float64) {
	uc8PowerRegistry.Select()(in, out, n, meanLevel, meanPower)
}

func clampMag(m float64) float64 {
	if m > 1 {
		return 1
	}
	if m < 0 {
		return 0
	}
	return m
}

func magU16(m float64) uint16 {
	return uint16(m*65535.0 + 0.5)
}

func magnitudeSC16Generic(in []byte, out []uint16, n int) {
	for i := 0; i < n; i++ {
		I := float64(int16(binary.LittleEndian.Uint16(in[4*i:]))) / 32768.0
		Q := float64(int16(binary.LittleEndian.Uint16(in[4*i+2:]))) / 32768.0
		out[i] = magU16(math.Sqrt(clampMag(I*I + Q*Q)))
	}
}

var sc16Registry = NewRegistry([]Entry[MagnitudeFunc]{
	{Name: "magnitude_sc16_generic", Flavor: "generic", Fn: magnitudeSC16Generic},
})

func init() { registerPrimitive("magnitude_sc16", sc16Registry) }

// MagnitudeSC16 dispatches to the registry-selected SC16 magnitude kernel.
func MagnitudeSC16(in []byte, out []uint16, n int) { sc16Registry.Select()(in, out, n) }

func magnitudeSC16Q11Generic(in []byte, out []uint16, n int) {
	for i := 0; i < n; i++ {
		I := float64(int16(binary.LittleEndian.Uint16(in[4*i:]))) / 2048.0
		Q := float64(int16(binary.LittleEndian.Uint16(in[4*i+2:]))) / 2048.0
		out[i] = magU16(math.Sqrt(clampMag(I*I + Q*Q)))
	}
}

var sc16q11Registry = NewRegistry([]Entry[MagnitudeFunc]{
	{Name: "magnitude_sc16q11_generic", Flavor: "generic", Fn: magnitudeSC16Q11Generic},
})

func init() { registerPrimitive("magnitude_sc16q11", sc16q11Registry) }

// MagnitudeSC16Q11 dispatches to the registry-selected SC16Q11 kernel.
func MagnitudeSC16Q11(in []byte, out []uint16, n int) { sc16q11Registry.Select()(in, out, n) }

func magnitudeS16Generic(in []byte, out []uint16, n int) {
	for i := 0; i < n; i++ {
		x := float64(int16(binary.LittleEndian.Uint16(in[2*i:]))) / 32768.0
		out[i] = magU16(math.Sqrt(clampMag(x * x)))
	}
}

var s16Registry = NewRegistry([]Entry[MagnitudeFunc]{
	{Name: "magnitude_s16_generic", Flavor: "generic", Fn: magnitudeS16Generic},
})

func init() { registerPrimitive("magnitude_s16", s16Registry) }

// MagnitudeS16 dispatches to the registry-selected S16 (real-only) kernel.
func MagnitudeS16(in []byte, out []uint16, n int) { s16Registry.Select()(in, out, n) }

func magnitudeU16O12Generic(in []byte, out []uint16, n int) {
	for i := 0; i < n; i++ {
		x := binary.LittleEndian.Uint16(in[2*i:])
		if x > 4095 {
			x = 4095
		}
		d := int(x) - 2048
		if d < 0 {
			d = -d
		}
		out[i] = magU16(math.Sqrt(clampMag(float64(d) * float64(d) / (2047.0 * 2047.0))))
	}
}

var u16o12Registry = NewRegistry([]Entry[MagnitudeFunc]{
	{Name: "magnitude_u16o12_generic", Flavor: "generic", Fn: magnitudeU16O12Generic},
})

func init() { registerPrimitive("magnitude_u16o12", u16o12Registry) }

// MagnitudeU16O12 dispatches to the registry-selected U16Offset12 kernel.
func MagnitudeU16O12(in []byte, out []uint16, n int) { u16o12Registry.Select()(in, out, n) }
