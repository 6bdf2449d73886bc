package tools

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	todayRe    = regexp.MustCompile(`\b(today|now|this day)\b`)
	tomorrowRe = regexp.MustCompile(`\b(tomorrow|next day|day after)\b`)
	monthDayRe = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}))?\b`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// ResolveDate turns a free-text date expression into a calendar day (midnight in
// now's location). Rules, first match wins:
//   - "today", "now", "this day"
//   - "tomorrow", "next day", "day after"
//   - "<month> <day>", rolled to next year when already past
//   - YYYY-MM-DD
//   - M/D or M/D/YYYY (also with dashes)
//
// When nothing matches it returns today and false.
func ResolveDate(expr string, now time.Time) (time.Time, bool) {
	today := midnight(now)
	q := strings.ToLower(expr)

	if todayRe.MatchString(q) {
		return today, true
	}
	if tomorrowRe.MatchString(q) {
		return today.AddDate(0, 0, 1), true
	}
	for _, m := range monthDayRe.FindAllStringSubmatch(q, -1) {
		month := monthNames[m[1]]
		day, _ := strconv.Atoi(m[2])
		d, ok := makeDate(now.Year(), month, day, now.Location())
		if !ok {
			continue
		}
		if d.Before(today) {
			if d, ok = makeDate(now.Year()+1, month, day, now.Location()); !ok {
				continue
			}
		}
		return d, true
	}
	for _, m := range isoDateRe.FindAllStringSubmatch(q, -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if date, ok := makeDate(y, time.Month(mo), d, now.Location()); ok {
			return date, true
		}
	}
	for _, m := range slashRe.FindAllStringSubmatch(q, -1) {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y := now.Year()
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
		}
		if date, ok := makeDate(y, time.Month(mo), d, now.Location()); ok {
			return date, true
		}
	}
	return today, false
}

// makeDate rejects dates time.Date would normalize, such as February 30.
func makeDate(y int, m time.Month, d int, loc *time.Location) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if t.Month() != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
