// Package cache provides a bounded, in-process key/value cache.
//
// A Cache holds at most MaxEntries entries and roughly MaxMemoryBytes of
// estimated payload. When either bound would be exceeded by an insert, the
// least recently used entries are evicted first. Entries may carry a TTL;
// expired entries are never returned and are removed lazily on access or in
// bulk by CleanupExpired.
//
// The memory bound is soft: a single value whose estimated size exceeds the
// whole budget is still stored, after everything else has been evicted.
package cache
