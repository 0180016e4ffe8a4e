package feed

import (
	"fmt"
	"time"

	"campusphere/models"
)

// ParseTimestamp reads the timestamp formats the post store emits.
// Timestamps without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return models.ParseTimestamp(s)
}

// FormatRelativeTime labels createdOn relative to now. Unparseable input
// yields an empty label.
func FormatRelativeTime(createdOn string, now time.Time) string {
	t, err := ParseTimestamp(createdOn)
	if err != nil {
		return ""
	}
	return RelativeTime(t, now)
}

// RelativeTime labels t relative to now: "Just now", "5m ago", "3h ago",
// "2d ago" within a week, then a short date with the year only when it
// differs from now's.
func RelativeTime(t, now time.Time) string {
	elapsed := now.Sub(t)

	minutes := int64(elapsed / time.Minute)
	hours := int64(elapsed / time.Hour)
	days := hours / 24

	switch {
	case hours < 1 && minutes < 1:
		return "Just now"
	case hours < 1:
		return fmt.Sprintf("%dm ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	}

	local := t.In(now.Location())
	if local.Year() != now.Year() {
		return local.Format("Jan 2, 2006")
	}
	return local.Format("Jan 2")
}
