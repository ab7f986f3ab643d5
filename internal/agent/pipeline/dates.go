package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

var (
	seasonPattern  = regexp.MustCompile(`(?i)\b(summer|winter|spring|fall|autumn)\b`)
	monthPattern   = regexp.MustCompile(`(?i)\b(january|february|march|april|june|july|august|september|october|november|december)\b`)
	mayPattern     = regexp.MustCompile(`(?i)\b(?:in|during|for|this|next|early|late|mid|of)[\s-]+may\b`)
	weekendPattern = regexp.MustCompile(`(?i)\bthis\s+weekend\b`)
	nextWeekRegex  = regexp.MustCompile(`(?i)\bnext\s+week\b`)
	// slash only, and never inside a decimal or a longer slash run
	numericPattern = regexp.MustCompile(`(?:^|[^\d./])(\d{1,2})/(\d{1,2})(?:$|[^\d./]|\.(?:$|\D))`)
	dayCountRegex  = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})\s+(?:days?|nights?)\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// DateResolver turns date phrases into concrete ranges relative to a reference day.
type DateResolver struct {
	// DefaultStayDays is the span added to a numeric date without a day count.
	DefaultStayDays int
}

func NewDateResolver(defaultStayDays int) *DateResolver {
	if defaultStayDays <= 0 {
		defaultStayDays = 3
	}
	return &DateResolver{DefaultStayDays: defaultStayDays}
}

// Resolve applies the rules in priority order; the first match wins.
func (r *DateResolver) Resolve(text string, now time.Time) (model.DateRange, bool) {
	if strings.TrimSpace(text) == "" {
		return model.DateRange{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	rules := []func(string, time.Time) (time.Time, time.Time, bool){
		resolveSeason,
		resolveMonth,
		resolveThisWeekend,
		resolveNextWeek,
		r.resolveNumeric,
	}
	for _, rule := range rules {
		if start, end, ok := rule(text, today); ok {
			return model.DateRange{Start: &start, End: &end}, true
		}
	}
	return model.DateRange{}, false
}

func resolveSeason(text string, today time.Time) (time.Time, time.Time, bool) {
	var season string
	for _, idx := range seasonPattern.FindAllStringSubmatchIndex(text, -1) {
		word := strings.ToLower(text[idx[2]:idx[3]])
		// "hot spring" is a nearby feature, not a season
		if word == "spring" && strings.HasSuffix(strings.ToLower(text[:idx[2]]), "hot ") {
			continue
		}
		season = word
		break
	}
	if season == "" {
		return time.Time{}, time.Time{}, false
	}
	y, loc := today.Year(), today.Location()
	day := func(year int, month time.Month, d int) time.Time {
		return time.Date(year, month, d, 0, 0, 0, 0, loc)
	}

	switch season {
	case "summer":
		return day(y, time.June, 21), day(y, time.September, 22), true
	case "winter":
		return day(y, time.December, 21), day(y+1, time.March, 20), true
	case "spring":
		return day(y, time.March, 20), day(y, time.June, 20), true
	default: // fall, autumn
		return day(y, time.September, 23), day(y, time.December, 20), true
	}
}

// resolveMonth covers the whole calendar month, rolling to next year once the month
// has ended. "may" only counts with a leading preposition ("in May").
func resolveMonth(text string, today time.Time) (time.Time, time.Time, bool) {
	var month time.Month
	if m := monthPattern.FindStringSubmatch(text); m != nil {
		month = monthsByName[strings.ToLower(m[1])]
	} else if mayPattern.MatchString(text) {
		month = time.May
	} else {
		return time.Time{}, time.Time{}, false
	}

	year := today.Year()
	if month < today.Month() {
		year++
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, today.Location())
	end := start.AddDate(0, 1, -1)
	return start, end, true
}

func resolveThisWeekend(text string, today time.Time) (time.Time, time.Time, bool) {
	if !weekendPattern.MatchString(text) {
		return time.Time{}, time.Time{}, false
	}
	offset := (int(time.Saturday) - int(today.Weekday()) + 7) % 7
	start := today.AddDate(0, 0, offset)
	return start, start.AddDate(0, 0, 1), true
}

func resolveNextWeek(text string, today time.Time) (time.Time, time.Time, bool) {
	if !nextWeekRegex.MatchString(text) {
		return time.Time{}, time.Time{}, false
	}
	offset := (8 - int(today.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	start := today.AddDate(0, 0, offset)
	return start, start.AddDate(0, 0, 6), true
}

// resolveNumeric reads M/D, swapping to D/M when the first number cannot be a month.
func (r *DateResolver) resolveNumeric(text string, today time.Time) (time.Time, time.Time, bool) {
	m := numericPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])

	month, day := first, second
	if first > 12 {
		month, day = second, first
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, time.Time{}, false
	}

	year := today.Year()
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if start.Day() != day {
		// 2/30 and friends normalise into the next month
		return time.Time{}, time.Time{}, false
	}
	if start.Before(today) {
		start = start.AddDate(1, 0, 0)
	}

	days := r.DefaultStayDays
	if c := dayCountRegex.FindStringSubmatch(text); c != nil {
		if n, err := strconv.Atoi(c[1]); err == nil && n > 0 {
			days = n
		}
	}
	return start, start.AddDate(0, 0, days), true
}

// isCalendarWord filters month, weekday and season names out of location matches.
func isCalendarWord(s string) bool {
	w := strings.ToLower(strings.TrimSpace(s))
	if _, ok := monthsByName[w]; ok {
		return true
	}
	switch w {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"summer", "winter", "spring", "fall", "autumn":
		return true
	}
	return false
}
