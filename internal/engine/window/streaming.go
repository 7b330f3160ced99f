package window

import "math"

// RunningStat tracks a streaming mean and variance using Welford's online
// update, so buckets never store per-packet samples.
type RunningStat struct {
	n    uint64
	mean float64
	aux  float64 // Welford's S accumulator
}

// Add folds a new sample into the running statistics.
func (r *RunningStat) Add(x float64) {
	old := r.mean
	r.n++
	r.mean = old + (x-old)/float64(r.n)
	r.aux += (x - old) * (x - r.mean)
}

// Count returns the number of samples observed so far.
func (r *RunningStat) Count() uint64 {
	return r.n
}

// Mean returns the running average, 0 with no samples.
func (r *RunningStat) Mean() float64 {
	return r.mean
}

// Std returns the population standard deviation (S/n) of the samples
// observed so far.
func (r *RunningStat) Std() float64 {
	if r.n == 0 {
		return 0
	}
	return math.Sqrt(r.aux / float64(r.n))
}

// shannonEntropy computes the Shannon entropy in bits over the given
// samples.
func shannonEntropy(samples []uint16) float64 {
	if len(samples) <= 1 {
		return 0
	}

	freq := make(map[uint16]int, len(samples))
	for _, s := range samples {
		freq[s]++
	}
	if len(freq) == 1 {
		return 0
	}

	total := float64(len(samples))
	entropy := 0.0
	for _, cnt := range freq {
		p := float64(cnt) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// normalizedEntropy scales the Shannon entropy by log2 of the sample count
// so the result lies in [0, 1] regardless of the reservoir size.
func normalizedEntropy(samples []uint16) float64 {
	if len(samples) <= 1 {
		return 0
	}
	return shannonEntropy(samples) / math.Log2(float64(len(samples)))
}
