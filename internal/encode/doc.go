// Package encode turns event payloads into byte-capped JSON containers.
//
// It provides O(1)-per-value size estimation for batching decisions and a
// greedy single-pass serializer that packs events into a buffer without ever
// exceeding the configured cap. Events that do not fit stay queued; the
// serializer never drops data itself.
package encode
