package scheduler

import (
	"regexp"
	"strconv"
	"strings"
)

// AvailabilityChecker answers whether a teacher is nominally available for a
// given day and slot.
type AvailabilityChecker interface {
	IsAvailable(t Teacher, day Day, slot string) bool
}

// NewAvailability returns the checker for the mode. Unknown or empty modes
// fall back to substring matching.
func NewAvailability(mode AvailabilityMode) AvailabilityChecker {
	if mode == AvailabilityStrict {
		return StrictAvailability{}
	}
	return SubstringAvailability{}
}

// SubstringAvailability matches the day's abbreviation or full name anywhere
// in the availability text, ignoring case. Time ranges are not enforced, so
// "Mon-Fri" covers Monday and Friday only.
type SubstringAvailability struct{}

// IsAvailable implements AvailabilityChecker.
func (SubstringAvailability) IsAvailable(t Teacher, day Day, _ string) bool {
	text := strings.ToLower(t.Availability)
	return strings.Contains(text, strings.ToLower(day.Abbrev())) || strings.Contains(text, strings.ToLower(string(day)))
}

// StrictAvailability parses the availability text into day sets and clock
// windows. Supported forms include "Mon-Fri 09:00-16:00", "Mon,Tue,Thu",
// "Wednesday" and "daily". When no day token is present every weekday is
// allowed. When no window is present the whole day is allowed.
type StrictAvailability struct{}

// IsAvailable implements AvailabilityChecker.
func (StrictAvailability) IsAvailable(t Teacher, day Day, slot string) bool {
	rule := parseAvailability(t.Availability)
	if !rule.allows(day) {
		return false
	}
	if len(rule.windows) == 0 {
		return true
	}
	span, ok := parseClockRange(slot)
	if !ok {
		return true
	}
	for _, window := range rule.windows {
		if window.contains(span) {
			return true
		}
	}
	return false
}

type availabilityRule struct {
	days    map[Day]struct{}
	anyDay  bool
	windows []clockRange
}

func (r availabilityRule) allows(day Day) bool {
	if r.anyDay {
		return true
	}
	_, ok := r.days[day]
	return ok
}

var (
	clockRangePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)
	dayTokenPattern   = regexp.MustCompile(`[A-Za-z]+(?:\s*-\s*[A-Za-z]+)?`)
)

func parseAvailability(text string) availabilityRule {
	rule := availabilityRule{days: make(map[Day]struct{})}
	for _, match := range clockRangePattern.FindAllStringSubmatch(text, -1) {
		if span, ok := clockRangeFromMatch(match); ok {
			rule.windows = append(rule.windows, span)
		}
	}

	rest := clockRangePattern.ReplaceAllString(text, " ")
	matchedDay := false
	for _, token := range dayTokenPattern.FindAllString(rest, -1) {
		lower := strings.ToLower(strings.ReplaceAll(token, " ", ""))
		switch lower {
		case "daily", "weekdays", "all", "everyday", "any":
			rule.anyDay = true
			matchedDay = true
			continue
		}
		if from, to, ok := strings.Cut(lower, "-"); ok {
			start, okStart := ParseDay(from)
			end, okEnd := ParseDay(to)
			if okStart && okEnd {
				matchedDay = true
				for i := start.Index(); i <= end.Index(); i++ {
					rule.days[Weekdays[i]] = struct{}{}
				}
			}
			continue
		}
		if day, ok := ParseDay(lower); ok {
			matchedDay = true
			rule.days[day] = struct{}{}
			continue
		}
		if isWeekendToken(lower) {
			matchedDay = true
		}
	}
	if !matchedDay {
		rule.anyDay = true
	}
	return rule
}

func isWeekendToken(token string) bool {
	if len(token) < 3 {
		return false
	}
	return strings.HasPrefix("saturday", token) || strings.HasPrefix("sunday", token)
}

// clockRange is a half-open interval in minutes after midnight.
type clockRange struct {
	start int
	end   int
}

func (c clockRange) contains(other clockRange) bool {
	return other.start >= c.start && other.end <= c.end
}

func parseClockRange(token string) (clockRange, bool) {
	match := clockRangePattern.FindStringSubmatch(strings.TrimSpace(token))
	if match == nil {
		return clockRange{}, false
	}
	return clockRangeFromMatch(match)
}

func clockRangeFromMatch(match []string) (clockRange, bool) {
	if len(match) != 5 {
		return clockRange{}, false
	}
	var parts [4]int
	for i := range parts {
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return clockRange{}, false
		}
		parts[i] = n
	}
	if parts[0] > 23 || parts[1] > 59 || parts[2] > 24 || parts[3] > 59 {
		return clockRange{}, false
	}
	span := clockRange{start: parts[0]*60 + parts[1], end: parts[2]*60 + parts[3]}
	if span.end <= span.start {
		return clockRange{}, false
	}
	return span, true
}

// breakBetween reports whether a break lies between two teaching slots. Both
// slots and the break must be clock ranges for the gap to be detected.
func breakBetween(prev, next string, breaks []string) bool {
	before, ok := parseClockRange(prev)
	if !ok {
		return false
	}
	after, ok := parseClockRange(next)
	if !ok {
		return false
	}
	for _, token := range breaks {
		span, ok := parseClockRange(token)
		if !ok {
			continue
		}
		if span.start >= before.end && span.end <= after.start {
			return true
		}
	}
	return false
}
