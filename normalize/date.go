package normalize

import "time"

const DateLayout = "2006-01-02"

// DateFromTimestamp formats an epoch-millisecond timestamp as a calendar
// date in the given location. Callers handle absent or invalid timestamps.
func DateFromTimestamp(millis int64, location *time.Location) string {
	if location == nil {
		location = time.UTC
	}
	return time.UnixMilli(millis).In(location).Format(DateLayout)
}
