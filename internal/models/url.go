package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// ClickCount tracks the number of times the shortened URL has been resolved.
	ClickCount int64
	// IsActive reports whether the URL is still eligible for resolution.
	IsActive bool
	// ExpiresAt is an optional timestamp after which the URL is treated as expired.
	ExpiresAt *time.Time
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the shortened URL was last updated.
	UpdatedAt time.Time
}

// Expired reports whether the URL has an expiry timestamp in the past.
// A URL with no expiry never expires.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}
