package window

import "math/rand"

// Reservoir keeps a fixed-size uniform sample of a stream of source ports.
// Until the reservoir fills, elements are stored in order; afterwards each
// new element replaces a pseudo-randomly chosen slot with probability
// size/seen, which keeps the sample uniform over the whole stream. The
// generator is injected so runs are reproducible under a fixed seed.
type Reservoir struct {
	samples []uint16
	seen    int64
	rng     *rand.Rand
}

// NewReservoir creates a reservoir holding up to size samples.
func NewReservoir(size int, rng *rand.Rand) *Reservoir {
	return &Reservoir{
		samples: make([]uint16, size),
		rng:     rng,
	}
}

// Add offers a single element to the reservoir.
func (r *Reservoir) Add(v uint16) {
	if r.seen < int64(len(r.samples)) {
		r.samples[r.seen] = v
	} else {
		idx := r.rng.Int63n(r.seen + 1)
		if idx < int64(len(r.samples)) {
			r.samples[idx] = v
		}
	}
	r.seen++
}

// Samples returns the currently held samples, at most the reservoir size.
func (r *Reservoir) Samples() []uint16 {
	if r.seen < int64(len(r.samples)) {
		return r.samples[:r.seen]
	}
	return r.samples
}
