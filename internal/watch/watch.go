// Package watch streams cache purge events to the terminal.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/gazette/internal/cache"
	"github.com/dyluth/gazette/internal/listing"
)

// Source delivers purge events. *cache.PurgeSubscription implements it.
type Source interface {
	Events() <-chan *cache.PurgeEvent
	Errors() <-chan error
}

// Options controls a Stream call.
type Options struct {
	// Timeout stops the stream after a fixed duration; zero streams until ctx is done
	Timeout time.Duration
	Format  listing.OutputFormat
	// OnError is called for malformed events; nil ignores them
	OnError func(error)
}

// Stream writes purge events from src to w until ctx is done, the timeout
// elapses or the subscription closes. Returns the number of events written.
// Reaching the timeout or cancelling ctx is not an error.
func Stream(ctx context.Context, src Source, w io.Writer, opts Options) (int, error) {
	var timeoutCh <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	events, errs := src.Events(), src.Errors()
	count := 0

	for {
		select {
		case <-ctx.Done():
			return count, nil

		case <-timeoutCh:
			return count, nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if opts.OnError != nil {
				opts.OnError(err)
			}

		case event, ok := <-events:
			if !ok {
				return count, nil
			}
			if err := writeEvent(w, event, opts.Format); err != nil {
				return count, err
			}
			count++
		}
	}
}

func writeEvent(w io.Writer, event *cache.PurgeEvent, format listing.OutputFormat) error {
	if format == listing.OutputFormatJSONL {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal purge event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	_, err := fmt.Fprintf(w, "[%s] %s\n", event.At().Format("15:04:05"), FormatEvent(event))
	return err
}

// FormatEvent renders a purge event as a one-line summary.
func FormatEvent(event *cache.PurgeEvent) string {
	id := event.ID
	if len(id) > 8 {
		id = id[:8]
	}

	noun := "keys"
	if event.Keys == 1 {
		noun = "key"
	}

	msg := fmt.Sprintf("🧹 Cache Purged: %d %s", event.Keys, noun)
	if event.Reason != "" {
		msg += fmt.Sprintf(" reason=%q", event.Reason)
	}
	return msg + " id=" + id
}
