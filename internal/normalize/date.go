package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// ErrUnresolvableDate is returned when a raw date token matches none of the
// accepted grammars or names a day that does not exist.
var ErrUnresolvableDate = errors.New("unresolvable date")

type relativeWord struct {
	word    string
	daysAgo int
}

// minTypoLength is the shortest token matched against relative words with
// typo tolerance.
const minTypoLength = 4

// Longer phrases come first: "daybeforeyesterday" contains "yesterday".
var relativeWords = []relativeWord{
	{"iforrgar", 2},
	{"forrgar", 2},
	{"daybeforeyesterday", 2},
	{"igar", 1},
	{"yesterday", 1},
	{"idag", 0},
	{"today", 0},
}

var months = [12][]string{
	{"januari", "january"},
	{"februari", "february"},
	{"mars", "march"},
	{"april"},
	{"maj", "may"},
	{"juni", "june"},
	{"juli", "july"},
	{"augusti", "august"},
	{"september"},
	{"oktober", "october"},
	{"november"},
	{"december"},
}

var (
	timeOfDayPattern  = regexp.MustCompile(`\bkl\.?\s*\d{1,2}[.:]\d{2}\b|\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	monthTimePattern  = regexp.MustCompile(`(\p{L}{3,}\.?)\s+\d{1,2}\.\d{2}$`)
	labelPattern      = regexp.MustCompile(`^[\p{L}\s]+:\s*`)
	isoPattern        = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	dayMonthPattern   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	dayNamePattern    = regexp.MustCompile(`\b(\d{1,2})\.?\s*(\p{L}{3,})\.?(?:\s*(\d{4}|\d{2})\b)?`)
	nameDayPattern    = regexp.MustCompile(`(\p{L}{3,})\.?\s+(\d{1,2})\b(?:,?\s*(\d{4})\b)?`)
	smallIntPattern   = regexp.MustCompile(`\d+`)
	separatorReplacer = strings.NewReplacer(".", "/", "-", "/")
)

// Date resolves a raw date token to a calendar date relative to now.
//
// Grammars are tried in order: relative words (idag, igår, förrgår and their
// English forms), ISO dates, day/month with optional year, day plus month
// name, and finally the first two small integers read as day and month.
// Dates without a year take the current year unless that would place them
// after today, in which case the previous year is used.
//
// The returned time is midnight UTC of the resolved day.
func Date(raw string, now time.Time) (time.Time, error) {
	s := cleanDate(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnresolvableDate, raw)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if daysAgo, ok := relativeDays(s); ok {
		return today.AddDate(0, 0, -daysAgo), nil
	}

	for _, resolve := range []func(string, time.Time) (time.Time, bool){
		isoDate,
		numericDayMonth,
		namedMonth,
		looseDayMonth,
	} {
		if t, ok := resolve(s, today); ok {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnresolvableDate, raw)
}

// cleanDate lowercases the token and strips time-of-day and label prefixes.
func cleanDate(raw string) string {
	s := strings.ToLower(strings.ReplaceAll(raw, "\u00a0", " "))
	s = timeOfDayPattern.ReplaceAllString(s, " ")
	if stripped := labelPattern.ReplaceAllString(s, ""); strings.TrimSpace(stripped) != "" {
		s = stripped
	}
	s = strings.Join(strings.Fields(s), " ")
	// "15 sep 14.30": a dotted time after a month name would be read as a year.
	if m := monthTimePattern.FindStringSubmatch(s); m != nil {
		if _, ok := lookupMonth(m[1]); ok {
			s = strings.TrimSpace(strings.TrimSuffix(s, m[0][len(m[1]):]))
		}
	}
	return strings.Trim(s, " .,;()")
}

func relativeDays(s string) (int, bool) {
	folded := fold(s)
	compact := strings.ReplaceAll(folded, " ", "")
	for _, rw := range relativeWords {
		if strings.Contains(compact, rw.word) {
			return rw.daysAgo, true
		}
	}

	if strings.ContainsFunc(folded, unicode.IsDigit) {
		return 0, false
	}

	// Tolerate small typos such as "förgår" or "igaar". Short tokens like
	// "dag" are too close to real words to be guessed.
	candidates := append(strings.Fields(folded), compact)
	best, bestDistance, ambiguous := 0, -1, false
	for _, rw := range relativeWords {
		limit := 1
		if len(rw.word) >= 7 {
			limit = 2
		}
		for _, c := range candidates {
			if utf8.RuneCountInString(c) < minTypoLength {
				continue
			}
			d := matchr.Levenshtein(c, rw.word)
			if d > limit {
				continue
			}
			switch {
			case bestDistance < 0 || d < bestDistance:
				best, bestDistance, ambiguous = rw.daysAgo, d, false
			case d == bestDistance && rw.daysAgo != best:
				ambiguous = true
			}
		}
	}
	if bestDistance < 0 || ambiguous {
		return 0, false
	}
	return best, true
}

func isoDate(s string, _ time.Time) (time.Time, bool) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
}

func numericDayMonth(s string, today time.Time) (time.Time, bool) {
	m := dayMonthPattern.FindStringSubmatch(separatorReplacer.Replace(s))
	if m == nil {
		return time.Time{}, false
	}
	return withOptionalYear(atoi(m[1]), atoi(m[2]), m[3], today)
}

func namedMonth(s string, today time.Time) (time.Time, bool) {
	for _, m := range dayNamePattern.FindAllStringSubmatch(s, -1) {
		if month, ok := lookupMonth(m[2]); ok {
			return withOptionalYear(atoi(m[1]), month, m[3], today)
		}
	}
	for _, m := range nameDayPattern.FindAllStringSubmatch(s, -1) {
		if month, ok := lookupMonth(m[1]); ok {
			return withOptionalYear(atoi(m[2]), month, m[3], today)
		}
	}
	return time.Time{}, false
}

func looseDayMonth(s string, today time.Time) (time.Time, bool) {
	var small []int
	for _, token := range smallIntPattern.FindAllString(s, -1) {
		if len(token) <= 2 {
			small = append(small, atoi(token))
		}
		if len(small) == 2 {
			return inferYear(small[0], small[1], today)
		}
	}
	return time.Time{}, false
}

func withOptionalYear(day, month int, rawYear string, today time.Time) (time.Time, bool) {
	if rawYear == "" {
		return inferYear(day, month, today)
	}
	if len(rawYear) == 2 {
		return withTwoDigitYear(day, month, atoi(rawYear), today)
	}
	return buildDate(atoi(rawYear), month, day)
}

// withTwoDigitYear reads yy as 20yy, or as 19yy when 20yy lies after today.
func withTwoDigitYear(day, month, yy int, today time.Time) (time.Time, bool) {
	t, ok := buildDate(2000+yy, month, day)
	if ok && t.After(today) {
		return buildDate(1900+yy, month, day)
	}
	return t, ok
}

// lookupMonth accepts full month names and prefixes of at least three letters.
func lookupMonth(token string) (int, bool) {
	token = fold(strings.TrimSuffix(token, "."))
	if len(token) < 3 {
		return 0, false
	}
	for i, names := range months {
		for _, name := range names {
			if strings.HasPrefix(name, token) {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// inferYear picks the current year, or the previous one when day/month lies after today.
func inferYear(day, month int, today time.Time) (time.Time, bool) {
	year := today.Year()
	if time.Month(month) > today.Month() || (time.Month(month) == today.Month() && day > today.Day()) {
		year--
	}
	return buildDate(year, month, day)
}

func buildDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
