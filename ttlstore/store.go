// ttlstore/store.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package ttlstore implements the opaque expiring key-value store of
// spec.md §4.4: put/get/delete/scan plus an arm/subscribeExpiries sentinel
// protocol that lets the engine read a record's contents after its TTL has
// fired. util/cache.go's msgpack+compress pairing is the model for how
// values are serialized on the wire; here the destination is Redis rather
// than a local cache file, so github.com/redis/go-redis/v9 stands in for
// os.Create/os.Open and the Redis keyspace-notification mechanism stands
// in for the scan-the-filesystem cull.
package ttlstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("ttlstore: key not found")

// Store is the contract of spec.md §4.4. Any implementation satisfying it
// is acceptable to the trackers built on top of it.
type Store interface {
	// Put stores a serialized record under key with no intrinsic expiry.
	Put(ctx context.Context, key string, value any) error

	// Get decodes the record stored under key into dst. Returns
	// ErrNotFound if key is absent.
	Get(ctx context.Context, key string, dst any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns every key beginning with prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// Arm associates (or re-associates) an expiry sentinel with key that
	// fires after ttlSeconds. Re-arming replaces the prior sentinel.
	Arm(ctx context.Context, key string, ttlSeconds int) error

	// SubscribeExpiries delivers a key to callback at-least-once each
	// time that key's sentinel fires. It runs until ctx is cancelled.
	SubscribeExpiries(ctx context.Context, callback func(key string)) error

	// Close releases the store's underlying connections.
	Close() error
}
