package simulation

import "math/rand"

// Source is the random stream every probabilistic branch draws from.
type Source interface {
	Float64() float64
}

// NewSource returns a seeded pseudo-random Source.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// intn draws a uniform integer in [0, n).
func intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	v := int(src.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}
