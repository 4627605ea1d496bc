package domain

import "time"

// EventImported is fired after a candidate has been persisted.
const EventImported = "content_import.import"

// ImportEvent is the payload of EventImported.
type ImportEvent struct {
	Driver  string
	Content *Content
}

// RunStats holds statistics about one runner tick.
type RunStats struct {
	Importers       int
	Succeeded       int
	Failed          int
	Disabled        int
	Imported        int
	PersistFailures int
	Duration        time.Duration
}
