// Package dsp implements the CPU-feature-dispatched kernel registry
// described in spec.md section 4.2: a small, fixed set of DSP primitives
// (magnitude conversion, boxcar smoothing, preamble correlation,
// mean-power reduction), each with one or more numerically-equivalent
// implementations selected at runtime by a cached, one-shot dispatcher.
//
// The registry/dispatch/wisdom machinery mirrors the "starch" generated
// code visible in the teacher pack's original_source/dsp/generated -
// per-primitive registries of (rank, name, flavor, fn, probe) entries,
// re-ranked in place by SetWisdom and re-selected lazily on the next call.
package dsp

import (
	"sort"
	"sync"
)

// Entry is one implementation of a primitive: a rank (lower sorts first),
// a stable name used by wisdom files, a human flavor tag, the callable
// itself, and an optional feature probe (nil means "always supported").
type Entry[F any] struct {
	Rank   int
	Name   string
	Flavor string
	Fn     F
	Probe  func() bool
}

// Registry holds every known implementation of one primitive and caches
// the dispatcher's current selection until wisdom invalidates it.
type Registry[F any] struct {
	mu       sync.Mutex
	entries  []Entry[F]
	chosen   F
	selected bool
}

// NewRegistry builds a registry in factory (declared) order. The order
// passed in is the initial rank order: index 0 has rank 0, and so on.
func NewRegistry[F any](entries []Entry[F]) *Registry[F] {
	cp := make([]Entry[F], len(entries))
	copy(cp, entries)
	for i := range cp {
		cp[i].Rank = i
	}
	return &Registry[F]{entries: cp}
}

// Select returns the first entry (by current rank order) whose probe
// passes, caching the result. It panics if no entry qualifies - per
// spec.md section 4.2/section 7, an unsatisfiable registry is a
// configuration bug, not a runtime condition to recover from.
func (r *Registry[F]) Select() F {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected {
		return r.chosen
	}
	for _, e := range r.entries {
		if e.Probe == nil || e.Probe() {
			r.chosen = e.Fn
			r.selected = true
			return r.chosen
		}
	}
	panic("dsp: no registry entry satisfies its feature probe")
}

// SetWisdomByNames stably reorders the registry: entries named in
// implNames sort first, ordered by their position in implNames; entries
// not mentioned keep their existing relative order, placed after every
// matched entry. This implements spec.md invariant 5. The cached
// selection is invalidated so the next Select re-probes in the new order.
func (r *Registry[F]) SetWisdomByNames(implNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := make(map[string]int, len(implNames))
	for i, n := range implNames {
		pos[n] = i
	}

	sort.SliceStable(r.entries, func(i, j int) bool {
		ri, oki := pos[r.entries[i].Name]
		rj, okj := pos[r.entries[j].Name]
		switch {
		case oki && okj:
			return ri < rj
		case oki && !okj:
			return true
		case !oki && okj:
			return false
		default:
			return false
		}
	})
	for i := range r.entries {
		r.entries[i].Rank = i
	}
	r.selected = false
}

// Ranks reports the current (name -> rank) assignment, for tests and
// diagnostics.
func (r *Registry[F]) Ranks() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.entries))
	for _, e := range r.entries {
		out[e.Name] = e.Rank
	}
	return out
}

// wisdomSettable lets the package-level SetWisdom/ReadWisdomFile reach any
// primitive's registry without knowing its function-pointer type.
type wisdomSettable interface {
	SetWisdomByNames(names []string)
}

var (
	primitivesMu sync.Mutex
	primitives   = map[string]wisdomSettable{}
)

func registerPrimitive(name string, r wisdomSettable) {
	primitivesMu.Lock()
	defer primitivesMu.Unlock()
	primitives[name] = r
}

// SetWisdom re-ranks the named primitive's registry, matching
// spec.md's setWisdom(primitive, orderedImplList) contract. Unknown
// primitive names are silently ignored (there is nothing to rank).
func SetWisdom(primitive string, implNames []string) {
	primitivesMu.Lock()
	r, ok := primitives[primitive]
	primitivesMu.Unlock()
	if !ok {
		return
	}
	r.SetWisdomByNames(implNames)
}
