// Package jitter provides randomized durations for backoff, pacing, and
// timeout spreading.
package jitter

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Between returns a random duration in [min, max]. The spread keeps workers
// from synchronizing their retries and requests into bursts.
func Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := big.NewInt(int64(max - min + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return min + (max-min)/2
	}
	return min + time.Duration(n.Int64())
}

// Index returns a random int in [0, n).
func Index(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
