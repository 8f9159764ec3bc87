package db

import "time"

// Source is a page (or file) candidate words were extracted from.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	SiteName   string
	URL        string
	Language   string
	AddedAt    time.Time
}

// Sighting links a word with the Source it was seen on.
type Sighting struct {
	ID              int64
	Language        string
	Word            string
	SourceID        int64
	Sentence        string
	Translation     string
	OccurrenceCount int
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
}
