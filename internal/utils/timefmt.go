package utils

import "time"

// DBTimeLayout is the fixed local form timestamps are persisted in.
const DBTimeLayout = "2006-01-02 15:04:05"

// NowDB returns the current local time in the persisted layout.
func NowDB() string {
	return time.Now().Format(DBTimeLayout)
}

// FormatTimestamp converts a persisted "YYYY-MM-DD HH:MM:SS" string to
// an ISO-8601 interchange string for API responses. The SQLite driver
// hands TIMESTAMP columns back as time.Time, which database/sql renders
// as RFC 3339 when scanned into a string, so that layout is accepted
// too. Values that do not parse (including empty strings) are returned
// unchanged, matching how legacy rows with odd timestamps are surfaced
// rather than dropped.
func FormatTimestamp(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{DBTimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04:05")
		}
	}
	return s
}
