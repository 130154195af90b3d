package layer

import "github.com/mwantia/ustore/backend"

// Layer composes cross-cutting behavior around a backend without the
// backend depending on it. A layer wraps exactly one inner backend and
// returns a decorated one satisfying the same contract.
type Layer interface {
	Apply(inner backend.Backend) backend.Backend
}

// Chain wraps base with the given layers. Layers are listed in
// registration order; the first listed ends up outermost, so calls pass
// through it first. The chain is fixed once built.
func Chain(base backend.Backend, layers ...Layer) backend.Backend {
	for i := len(layers) - 1; i >= 0; i-- {
		base = layers[i].Apply(base)
	}

	return base
}
