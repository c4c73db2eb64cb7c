package cache

import "time"

// PurgeEvent is published on {namespace}:purge_events after a purge.
type PurgeEvent struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
	Keys   int    `json:"keys"`
	AtMs   int64  `json:"at_ms"`
}

// At returns the purge time.
func (e *PurgeEvent) At() time.Time {
	return time.UnixMilli(e.AtMs)
}
