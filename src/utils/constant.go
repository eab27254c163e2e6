package utils

import "time"

// -----------------------------------------------------------------------------

// Defaults shared by config loading and the book sessions.
const (
	DefaultRecentTicks     = 200
	DefaultRetentionHours  = 24
	DefaultWSBufferSize    = 256
	DefaultCleanupInterval = 10 * time.Minute
	DefaultJournalBatch    = 20
)

// -----------------------------------------------------------------------------

// RetentionCutoff returns the oldest timestamp kept for the given retention.
// A non-positive retention falls back to DefaultRetentionHours.
func RetentionCutoff(now time.Time, hours int) time.Time {
	if hours <= 0 {
		hours = DefaultRetentionHours
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}
