// Package managedip implements the approximate-membership Managed-IP Oracle
// and the SHA3 hashing transform applied uniformly to both the seed file and
// ingested packet endpoints when hashing is enabled.
package managedip

import (
	"bufio"
	"encoding/hex"
	"io"
	"strings"

	"github.com/willf/bloom"
	"golang.org/x/crypto/sha3"
)

// HashID returns the lowercase hex SHA3-256 digest of id's UTF-8 bytes.
// The file loader and the ingest path both call this at the point an IP
// enters the system (load time / record-creation time), never at lookup
// time, so Oracle itself never needs to know whether hashing is enabled.
func HashID(id string) string {
	sum := sha3.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Transform returns HashID when hash is true, or the identity function
// otherwise. Callers apply it once, at the boundary, to whatever they are
// about to store or compare.
func Transform(hash bool) func(string) string {
	if hash {
		return HashID
	}
	return func(s string) string { return s }
}

// Oracle is a Bloom-filter backed approximate-membership set: no false
// negatives, tunable false positives, insert-only. Callers are responsible
// for applying the same Transform to every key before Add/Test; the Oracle
// itself stores and compares opaque strings.
type Oracle struct {
	filter *bloom.BloomFilter
}

// NewOracle builds an empty oracle sized for n expected keys at false
// positive rate fp.
func NewOracle(n uint, fp float64) *Oracle {
	return &Oracle{filter: bloom.NewWithEstimates(n, fp)}
}

// Add inserts key into the set.
func (o *Oracle) Add(key string) {
	o.filter.AddString(key)
}

// Test reports whether key is (probably) a member. False positives are
// expected; false negatives must never occur for correctly-added entries.
func (o *Oracle) Test(key string) bool {
	return o.filter.TestString(key)
}

// LoadOracle seeds an Oracle from a newline-delimited list of IP literals,
// applying transform to each line before insertion.
func LoadOracle(r io.Reader, n uint, fp float64, transform func(string) string) (*Oracle, error) {
	o := NewOracle(n, fp)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		o.Add(transform(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return o, nil
}
