package logging

import (
	"log"
	"time"
)

// Observer receives elapsed times emitted by Track.
type Observer func(name string, elapsed time.Duration)

var observers []Observer

// AddObserver registers fn to receive every measurement from Track.
// It must be called during start-up, before any Track call.
func AddObserver(fn Observer) {
	observers = append(observers, fn)
}

// Track starts a timer for name and returns the function that stops it.
// Use with defer so the elapsed time is emitted on every return path:
//
//	defer logging.Track("fetch_records")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		log.Printf("Elapsed time for %s: %.2f seconds", name, elapsed.Seconds())
		for _, fn := range observers {
			fn(name, elapsed)
		}
	}
}
