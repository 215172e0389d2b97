// Package cache keeps the last known item collection on local disk so the
// application can start when the shared store is unreachable.
package cache
