// Package pipeline plumbs filesystem notifications into a bounded worker
// pool that sketches, ingests, or searches sequence files on behalf of the
// daemon.
package pipeline
