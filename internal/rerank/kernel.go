// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank implements the similarity re-ranking stage: a deterministic
// interference-kernel similarity blended with cosine similarity. The kernel
// simulates a small photonic circuit numerically; it captures non-linear
// relationships between embeddings that plain cosine misses.
package rerank

import "math"

// reduceEmbedding maps an embedding onto n kernel parameters in [0, π]:
// L2-normalize, truncate or zero-pad to n modes, standardize, clip to ±2
// standard deviations, then rescale.
func reduceEmbedding(embedding []float64, n int) []float64 {
	normalized := l2Normalize(embedding)

	reduced := make([]float64, n)
	copy(reduced, normalized)

	var mean float64
	for _, v := range reduced {
		mean += v
	}
	mean /= float64(n)

	var variance float64
	for _, v := range reduced {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance/float64(n)) + 1e-8

	params := make([]float64, n)
	for i, v := range reduced {
		z := (v - mean) / std
		if z > 2 {
			z = 2
		} else if z < -2 {
			z = -2
		}
		params[i] = (z + 2) / 4 * math.Pi
	}
	return params
}

// simulateKernel runs the interference simulation over query and candidate
// parameters and returns the measured similarity. The phases mirror a
// squeezed-state photonic circuit: displacement encoding for the query,
// rotation plus displacement for the candidate, a beamsplitter ring with
// cross connections, and a mode-weighted amplitude measurement.
func simulateKernel(queryParams, candidateParams []float64) float64 {
	n := len(queryParams)
	if n == 0 || len(candidateParams) != n {
		return 0
	}

	const squeezeR = 0.1
	amplitudes := make([]float64, n)
	initial := math.Sinh(squeezeR) * math.Sinh(squeezeR)
	for i := range amplitudes {
		amplitudes[i] = initial
	}

	// Displacement encoding for the query.
	for i, q := range queryParams {
		amplitudes[i] += math.Abs(q) * 0.5 * math.Cos(q*0.3)
	}

	// Rotation plus displacement encoding for the candidate.
	for i, c := range candidateParams {
		amplitudes[i] *= math.Cos(c)
		amplitudes[i] += math.Abs(c) * 0.3 * math.Cos(c*0.2)
	}

	// Beamsplitter ring.
	output := make([]float64, n)
	copy(output, amplitudes)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		theta := candidateParams[i] * 0.1
		ct, st := math.Cos(theta), math.Sin(theta)
		ai, aj := output[i], output[j]
		output[i] = ct*ai + st*aj
		output[j] = -st*ai + ct*aj
	}

	// Cross connections for richer interference.
	if n >= 4 {
		theta := math.Pi / 8
		ct, st := math.Cos(theta), math.Sin(theta)
		for i := 0; i < n-2; i += 2 {
			ai, aj := output[i], output[i+2]
			output[i] = ct*ai + st*aj
			output[i+2] = -st*ai + ct*aj
		}
	}

	// Measurement: mode-weighted average of absolute amplitudes.
	var weightedSum, totalWeight float64
	for i, v := range output {
		w := 1.0 / float64(i+1)
		weightedSum += w * math.Abs(v)
		totalWeight += w
	}
	return weightedSum / totalWeight
}

func l2Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm) + 1e-12

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	qa := l2Normalize(a)
	qb := l2Normalize(b)
	n := len(qa)
	if len(qb) < n {
		n = len(qb)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += qa[i] * qb[i]
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
