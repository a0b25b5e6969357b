// Package bloom implements the per-sequence Bloom filters that feed the
// index build, plus the hash derivation shared between filter construction
// and index queries.
package bloom
