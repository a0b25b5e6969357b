// Package sketch reads sequence files and reduces each sequence to a
// bottom-k minhash sketch over its canonical k-mers, then loads the sketch
// into a Bloom filter ready for indexing.
package sketch
