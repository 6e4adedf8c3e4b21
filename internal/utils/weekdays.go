package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

var dayMap = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,
}

// ParseWeekdays parses a comma-separated list of weekdays ("mon,wed" or "1,3")
func ParseWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var weekdays []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
			continue
		}
		// Try parsing as number (0=Sunday, 6=Saturday)
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		weekdays = append(weekdays, time.Weekday(num))
	}

	return weekdays, nil
}

// FormatFrequency formats a habit frequency into a human-readable string
func FormatFrequency(freq models.Frequency) string {
	days := func() string {
		var names []string
		for _, wd := range freq.Days {
			names = append(names, wd.String()[:3])
		}
		return strings.Join(names, ",")
	}

	switch freq.Type {
	case constants.FrequencyDaily:
		return "daily"
	case constants.FrequencyWeekdays:
		return "weekdays"
	case constants.FrequencyWeekends:
		return "weekends"
	case constants.FrequencyWeekly:
		if len(freq.Days) > 0 {
			return fmt.Sprintf("weekly on %s", freq.Days[0].String()[:3])
		}
		return "weekly"
	case constants.FrequencyCustom:
		return fmt.Sprintf("on %s", days())
	default:
		return "unknown"
	}
}
