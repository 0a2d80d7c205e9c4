// Package cache holds the process-wide map from source identity to
// compiled IR. Entries are immutable once installed and are never
// evicted; a changed file produces a new key because the key folds in
// the modification time.
package cache

import (
	"hash/fnv"
	"time"
)

// Key identifies one compiled source. Two distinct sources must not
// collide with overwhelming probability.
type Key uint64

// TextKey derives the identity of an inline template.
func TextKey(text string) Key {
	h := fnv.New64a()
	h.Write([]byte(text))
	return Key(h.Sum64())
}

// FileKey derives the identity of a file-backed template from its
// canonical path and last-modification time.
func FileKey(path string, mtime time.Time) Key {
	h := fnv.New64a()
	h.Write([]byte(path))
	return Key(h.Sum64() ^ uint64(mtime.UnixNano()))
}
