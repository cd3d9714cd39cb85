// Package cache provides the content-addressed extraction cache.
//
// Keys are cryptographic fingerprints over (chunk text, schema identity);
// values are the validated entities a previous run extracted for that pair,
// with a creation timestamp. Entries older than the configured TTL are
// treated as absent.
//
// The cache holds its working set in memory and uses a BadgerDB store only
// at lifecycle boundaries: all live entries are restored at startup, and
// entries added during a run are flushed in a single batch by Persist,
// called once at the end of the run. A crash mid-run forfeits that run's
// new entries but never corrupts previously persisted ones. A store that
// fails to open is logged and the cache runs memory-only; cache trouble is
// never fatal to a run.
//
// The on-disk format is private. Entries that fail to decode are discarded,
// not repaired.
package cache
