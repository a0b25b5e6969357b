// Package bitvector implements the packed bit array used for Bloom filter
// payloads and index rows.
//
// The serialised layout (little-endian capacity, little-endian cached
// popcount, LSB-first packed bytes) is part of the on-disk index format and
// must not change between versions.
package bitvector
