// Package etl orchestrates the extraction pipeline for a single data
// source: load, normalize, chunk, extract (through the cache), deduplicate,
// validate, quality-filter, render.
//
// Chunks are processed in document order by default, one oracle call
// outstanding at a time, because deduplication is order-dependent and must
// stay deterministic. An optional worker pool extracts chunks concurrently;
// results are sorted back into document order before deduplication so the
// outcome is identical either way.
//
// Failure semantics: errors during loading or chunking abort the run.
// Errors during a single chunk's extraction, or a single entity's
// validation, are accumulated in the run's error list without stopping the
// remaining work. A run can succeed with a non-empty error list as long
// as it got past loading and chunking.
package etl
