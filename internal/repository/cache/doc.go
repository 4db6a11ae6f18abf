// Package cache persists workspace snapshots between runs.
//
// The FileRepository keeps one gzip'd tar archive per key next to a small
// JSON metadata file recording when the snapshot was taken.
package cache
