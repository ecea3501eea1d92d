package listing

import (
	"strings"
	"time"
)

// displayLayout renders "5 March 2024".
const displayLayout = "2 January 2006"

var inputLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// FormatDate renders a raw invoice date as day, full month name and year.
// Timestamps are taken in UTC. Input that does not parse is returned as is.
func FormatDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(displayLayout)
		}
	}
	return raw
}
