// Package derive computes and caches derived forms of queued artifacts.
//
// Two kinds exist: [Full], a high-fidelity JPEG capped in width for a
// downstream vision service, and [Thumbnail], a small low-quality JPEG for
// local preview. Each kind has its own bounded cache keyed by the source
// path and its modification time, so rewriting a source file changes the
// key and the stale entry simply stops matching. Past capacity the oldest
// inserted entry is evicted; lookups do not refresh recency.
//
// When a source cannot be decoded or transformed, [Cache.Get] returns the
// unwrapped raw bytes tagged as a fallback instead of failing, and never
// caches that result. Only a source that cannot be read at all fails.
package derive
