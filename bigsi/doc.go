// Package bigsi implements a BIt-sliced Genome Signature Index: an
// inverted index over per-sequence Bloom filters that answers k-mer
// membership queries across every indexed sequence at once.
//
// A BIGSI is built by adding Bloom filters, frozen exactly once with
// Index, and then queried with hash values. Indexed state persists to a
// directory holding two ordered key-value stores (rows and colours) plus
// a JSON metadata sidecar, and can be reopened with Load.
package bigsi
