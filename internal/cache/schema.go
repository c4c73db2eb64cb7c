package cache

import "fmt"

// Redis key pattern helpers
//
// Every key and channel is namespaced so several Gazette sites can share one
// Redis server.
//
// Key pattern: {namespace}:{entity}:{id}
// Channel pattern: {namespace}:{event_type}_events

// ResponseKey returns the key for a cached GraphQL response.
// Pattern: {namespace}:gql:{hash}
func ResponseKey(namespace, hash string) string {
	return fmt.Sprintf("%s:gql:%s", namespace, hash)
}

// ResponsePattern matches every cached GraphQL response in a namespace.
func ResponsePattern(namespace string) string {
	return fmt.Sprintf("%s:gql:*", namespace)
}

// RateLimitKey returns the counter key for a rate-limit bucket.
// Pattern: {namespace}:ratelimit:{bucket}
func RateLimitKey(namespace, bucket string) string {
	return fmt.Sprintf("%s:ratelimit:%s", namespace, bucket)
}

// PurgeEventsChannel returns the Pub/Sub channel carrying purge notifications.
// Pattern: {namespace}:purge_events
func PurgeEventsChannel(namespace string) string {
	return fmt.Sprintf("%s:purge_events", namespace)
}
