// Package ddevil is a daemon that watches a directory for sequence files,
// sketches them, and maintains a BIt-sliced Genome Signature Index (BIGSI)
// for k-mer membership queries across every sequence it has seen.
//
// The index itself lives in the bigsi package; sequence reading and
// sketching in sketch; the daemon machinery in daemon; and the ddevil
// binary under cmd/ddevil. The root package carries the shared logger.
package ddevil
