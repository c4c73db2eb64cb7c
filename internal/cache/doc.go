// Package cache is Gazette's Redis layer.
//
// It stores raw WPGraphQL "data" payloads with a TTL (it satisfies
// wpgraphql.Cache), keeps fixed-window counters used to rate-limit comment
// submissions, and publishes a PurgeEvent every time the response cache is
// flushed so that operators can follow invalidations with `gazette watch`.
//
// # Redis Schema
//
// Cached responses: {namespace}:gql:{sha256}
// Rate-limit counters: {namespace}:ratelimit:{bucket}
//
// Pub/Sub channels:
//
// Purge events: {namespace}:purge_events
//
// Purge events are delivered at-most-once, like all Redis Pub/Sub traffic.
package cache
