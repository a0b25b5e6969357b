package sketch

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// complement maps an upper-cased nucleotide to its complement, with 0
// marking anything that is not an unambiguous ACGT base.
var complement = func() [256]byte {
	var table [256]byte
	table['A'] = 'T'
	table['C'] = 'G'
	table['G'] = 'C'
	table['T'] = 'A'
	return table
}()

// kmerHashes calls fn with the xxhash of the canonical form of every valid
// k-mer in seq. Windows containing an ambiguous base are skipped. The
// canonical form of a k-mer is the lexicographic minimum of the upper-cased
// k-mer and its reverse complement, so a sequence and its reverse strand
// sketch identically.
func kmerHashes(seq []byte, k int, fn func(hv uint64)) {
	if k <= 0 || len(seq) < k {
		return
	}
	fwd := make([]byte, k)
	rc := make([]byte, k)
	for i := 0; i+k <= len(seq); i++ {
		if !normalise(seq[i:i+k], fwd, rc) {
			continue
		}
		canon := fwd
		if bytes.Compare(rc, fwd) < 0 {
			canon = rc
		}
		fn(xxhash.Sum64(canon))
	}
}

// normalise writes the upper-cased k-mer into fwd and its reverse
// complement into rc, reporting false if any base is ambiguous.
func normalise(kmer, fwd, rc []byte) bool {
	n := len(kmer)
	for i, b := range kmer {
		u := upper(b)
		c := complement[u]
		if c == 0 {
			return false
		}
		fwd[i] = u
		rc[n-1-i] = c
	}
	return true
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
