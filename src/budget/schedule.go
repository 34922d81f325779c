package budget

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"monzo-manager/src/apperrors"

	"github.com/robfig/cron/v3"
)

var (
	everyPattern  = regexp.MustCompile(`^every(?:\s+(\d+))?\s+([a-z]+?)s?(?:\s+at\s+(\d{1,2}):(\d{2}))?$`)
	legacyPattern = regexp.MustCompile(`^schedule\.every\((\d*)\)\.([a-z_]+)(?:\.at\(["'](\d{1,2}:\d{2})["']\))?$`)

	intervalUnits = map[string]time.Duration{
		"second": time.Second,
		"minute": time.Minute,
		"hour":   time.Hour,
		"day":    24 * time.Hour,
		"week":   7 * 24 * time.Hour,
	}

	weekdays = map[string]int{
		"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
		"thursday": 4, "friday": 5, "saturday": 6,
	}
)

// ParseSchedule turns a schedule expression into a trigger. Accepted forms:
//
//	every 2 hours              fixed interval (second, minute, hour, day, week)
//	every day at 23:00         daily at a time
//	every sunday at 21:30      weekly on a day, midnight if no time is given
//	0 21 * * 0, @weekly        standard cron expressions and descriptors
//
// schedule.every(...) expressions from older ledger files are read as the
// equivalent "every" form.
func ParseSchedule(expr string) (cron.Schedule, error) {
	normalized := strings.ToLower(strings.TrimSpace(expr))
	if normalized == "" {
		return nil, apperrors.Configuration("schedule expression is empty")
	}
	if m := legacyPattern.FindStringSubmatch(normalized); m != nil {
		normalized = "every " + m[1] + " " + m[2]
		if m[3] != "" {
			normalized += " at " + m[3]
		}
		normalized = strings.Join(strings.Fields(normalized), " ")
	}

	if m := everyPattern.FindStringSubmatch(normalized); m != nil {
		sched, err := parseEvery(m[1], m[2], m[3], m[4])
		if err != nil {
			return nil, apperrors.Configuration("schedule %q: %v", expr, err)
		}
		return sched, nil
	}

	sched, err := cron.ParseStandard(strings.TrimSpace(expr))
	if err != nil {
		return nil, apperrors.Configuration("schedule %q: %v", expr, err)
	}
	return sched, nil
}

func parseEvery(count, unit, hour, minute string) (cron.Schedule, error) {
	n := 1
	if count != "" {
		var err error
		n, err = strconv.Atoi(count)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("interval must be a positive whole number")
		}
	}

	h, m := 0, 0
	if hour != "" {
		h, _ = strconv.Atoi(hour)
		m, _ = strconv.Atoi(minute)
		if h > 23 || m > 59 {
			return nil, fmt.Errorf("invalid time of day %s:%s", hour, minute)
		}
	}

	if day, ok := weekdays[unit]; ok {
		if n != 1 {
			return nil, fmt.Errorf("weekday schedules cannot repeat every %d weeks", n)
		}
		return cron.ParseStandard(fmt.Sprintf("%d %d * * %d", m, h, day))
	}

	d, ok := intervalUnits[unit]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", unit)
	}
	if hour == "" {
		return cron.Every(time.Duration(n) * d), nil
	}
	if unit != "day" || n != 1 {
		return nil, fmt.Errorf("a time of day is only supported for daily or weekday schedules")
	}
	return cron.ParseStandard(fmt.Sprintf("%d %d * * *", m, h))
}
