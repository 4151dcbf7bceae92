// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL together with
// its expiration window and click history, and the relevant error definitions.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the custom or generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	URLStats              // URLStats contains click statistics of the URL.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
	ExpiresAt   time.Time // ExpiresAt is the timestamp after which the short code no longer redirects.
}

// IsExpired reports whether the URL can no longer be redirected at the given time.
func (u *URL) IsExpired(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	ClickCount int64   // ClickCount is the number of successful redirects.
	Clicks     []Click // Clicks holds the recorded click events in chronological order. Loaded only for stats.
}

// Click is a single recorded visit of a short code.
type Click struct {
	Timestamp time.Time
	IP        string
	UserAgent string
	Referrer  string
	Location  Location
}

// Location is a coarse geographical position of a visitor.
type Location struct {
	City    string
	Country string
}
