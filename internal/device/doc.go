// Package device holds the normalised model of the hub's device fleet and
// the cache that keeps it current.
//
// # Model
//
// A Device owns its Attributes, keyed by name. Attribute values arrive from
// the hub as strings tagged with a declared data type; the Caster converts
// them to native Go values (float64, bool, Vector3, ...) and never fails,
// degrading to passthrough with a rate-limited warning.
//
// # Cache
//
// The Cache supports the eager whole-fleet model (FetchAll) with a lazy
// per-device fallback (FetchOne). Both guarantee at most one in-flight
// fetch per key: concurrent callers coalesce onto a single HTTP request
// and observe the same result. Device events mutate cached attributes in
// place, so every subscriber holding an attribute pointer sees the update;
// consumers copy at their output boundary instead.
//
// The cache is memory-only. It is rebuilt on demand and resynchronised
// when the hub reports a reboot; nothing survives a process restart.
package device
