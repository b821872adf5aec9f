// Package store provides the durable key-value store backing job state,
// rate-limit records and generated document artifacts.
//
// All records carry a TTL and are garbage-collected by the backend itself
// (redis expiry, or a sweep goroutine for the sqlite and memory stores).
// Keys are namespaced: "job:{id}", "ratelimit:{client}", "doc:{job}:{n}".
package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrConflict is returned by Create when the key already exists.
	ErrConflict = errors.New("store: key already exists")
)

// Store is a durable KV store with conditional creation and TTL expiry.
type Store interface {
	// Create writes value under key only if the key does not exist yet.
	Create(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Put writes value under key unconditionally, resetting the TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases any underlying resources.
	Close() error
}

// Key namespaces.
const (
	JobPrefix       = "job:"
	RateLimitPrefix = "ratelimit:"
	DocPrefix       = "doc:"
)

// JobKey builds the store key for a job record.
func JobKey(jobID string) string { return JobPrefix + jobID }

// RateLimitKey builds the store key for a client's rate-limit record.
func RateLimitKey(client string) string { return RateLimitPrefix + client }

// DocKey builds the store key for the n-th document artifact of a job.
func DocKey(jobID string, n int) string {
	return DocPrefix + jobID + ":" + strconv.Itoa(n)
}
