package driver

import "time"

// Entry is one feed item reduced to what the mapper needs, independent of
// the feed format it was read from.
type Entry struct {
	Link        string
	Title       string
	Published   time.Time
	Description string
	Categories  []string
	Tags        []string
	VideoLinks  []string
	Body        string
	Enclosures  []Enclosure
	Author      string
}

type Enclosure struct {
	URL  string
	Type string
}
