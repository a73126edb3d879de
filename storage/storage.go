// Package storage defines the opaque blob persistence contract consumed by
// the trust cache, plus an in-memory and a sqlite-backed implementation.
package storage

// Storage is simple keyed blob storage. Get returns (nil, nil) for a
// missing key.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
