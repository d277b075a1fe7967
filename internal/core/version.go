package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextVersion derives the schema version that follows prev, as of now.
// Versions are "<YYYY-MM-DD>.<n>" with the date taken in UTC; the counter
// resets to 1 on the first bump of each day. A counter suffix that fails to
// parse resets to 1 instead of surfacing an error: a stored version is never
// allowed to wedge the schema.
func NextVersion(prev string, now time.Time) string {
	today := now.UTC().Format("2006-01-02")
	if prev == "" || !strings.HasPrefix(prev, today) {
		return today + ".1"
	}
	idx := strings.LastIndex(prev, ".")
	n, err := strconv.Atoi(prev[idx+1:])
	if err != nil {
		return today + ".1"
	}
	return fmt.Sprintf("%s.%d", today, n+1)
}
