// Package metrics defines the Prometheus collectors for the relay
// orchestration core and small helper functions for recording into them.
//
// Collectors are registered once at package initialization via promauto and
// shared process-wide. The helpers in business.go keep label handling in one
// place so call sites stay one-liners.
package metrics
