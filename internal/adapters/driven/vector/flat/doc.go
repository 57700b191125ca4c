// Package flat provides an exact nearest-neighbour vector index.
// It implements the driven.VectorIndex interface.
//
// The index is a flat, append-only array of fixed-dimension float32
// vectors searched by brute force. For the bounded document counts this
// system targets (thousands, not millions) exact search is both simpler
// and more accurate than an approximate structure.
//
// # Persistence
//
// The index persists as a single binary blob: a fixed header (magic,
// format version, metric, dimension, count) followed by the packed
// vector data in little-endian float32. A blob whose dimension or
// metric does not match the configured index fails to load with
// domain.ErrIndexCorrupt; the caller's policy is to log and start with
// a fresh empty index, never to reinterpret the data.
package flat
