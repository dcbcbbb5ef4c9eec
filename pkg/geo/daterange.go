package geo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDateRange turns the loose date forms search handlers accept into
// a STAC datetime interval "YYYY-MM-DD/YYYY-MM-DD". The end accepts
// "today" or a plain date; the start additionally accepts "N days ago",
// resolved relative to the end.
func ParseDateRange(start, end string, now time.Time) (string, error) {
	endDate := now
	if end != "" && end != "today" {
		parsed, err := time.Parse(dateLayout, end)
		if err != nil {
			return "", fmt.Errorf("invalid end date %q: expected YYYY-MM-DD or 'today'", end)
		}
		endDate = parsed
	}

	var startDate time.Time
	switch {
	case strings.Contains(start, "days ago"):
		fields := strings.Fields(start)
		days, err := strconv.Atoi(fields[0])
		if err != nil {
			return "", fmt.Errorf("invalid start date %q: expected 'N days ago'", start)
		}
		startDate = endDate.AddDate(0, 0, -days)
	case start == "" || start == "today":
		startDate = endDate
	default:
		parsed, err := time.Parse(dateLayout, start)
		if err != nil {
			return "", fmt.Errorf("invalid start date %q: expected YYYY-MM-DD or 'N days ago'", start)
		}
		startDate = parsed
	}

	return startDate.Format(dateLayout) + "/" + endDate.Format(dateLayout), nil
}
