package dsp

import "golang.org/x/sys/cpu"

// Feature probes used by the "wide" registry entries. golang.org/x/sys/cpu
// exposes cpu.X86/cpu.ARM/cpu.ARM64 on every GOARCH (fields simply read
// false off the host architecture), so these compile and behave sanely
// cross-platform without build tags.

func hasAVX2() bool {
	return cpu.X86.HasAVX2
}

func hasSSE42() bool {
	return cpu.X86.HasSSE42
}

func hasNEON() bool {
	return cpu.ARM.HasNEON
}

func hasASIMD() bool {
	return cpu.ARM64.HasASIMD
}

// wideProbe is true when the current CPU offers any of the vector
// extensions the "wide" (loop-unrolled) flavor is written to take
// advantage of. The wide flavor is plain Go - there is no assembly here -
// but it is only worth ranking ahead of "generic" on cores wide enough
// to pipeline the unrolled loop, so it shares the same probe the real
// SIMD flavors would use.
func wideProbe() bool {
	return hasAVX2() || hasSSE42() || hasNEON() || hasASIMD()
}
