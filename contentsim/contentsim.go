// Package contentsim fingerprints page text for near-duplicate detection.
// Batch audits use it to flag URLs whose main content is essentially the
// same page, a classic duplicate-content SEO problem.
package contentsim

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// shingleSize is the number of consecutive words hashed together. Shingles
// (rather than single words) keep pages with similar vocabulary but
// different sentences from colliding.
const shingleSize = 3

// DuplicateThreshold is the maximum Hamming distance at which two pages are
// reported as near-duplicates.
const DuplicateThreshold = 4

// Fingerprint computes a 64-bit simhash of the given text over word
// shingles. Texts shorter than one shingle fall back to single-word tokens.
func Fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var vector [64]int

	accumulate := func(token string) {
		h := fnv.New64a()
		h.Write([]byte(token))
		hash := h.Sum64()
		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	if len(words) < shingleSize {
		for _, w := range words {
			accumulate(w)
		}
	} else {
		for i := 0; i+shingleSize <= len(words); i++ {
			accumulate(strings.Join(words[i:i+shingleSize], " "))
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}

	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
