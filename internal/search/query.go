// Package search implements C4: composing the embedding provider (C1)
// and vector store (C2) to serve text/image/hybrid/metadata queries,
// per spec.md §4.4. Grounded on
// original_source/app/services/search_service.py.
package search

import (
	"regexp"
	"strings"
)

var dateTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}[./-]\d{1,2}[./-]\d{1,2}`),
	regexp.MustCompile(`\d{1,2}[./-]\d{1,2}`),
	regexp.MustCompile(`\d{1,2}月\d{1,2}日?`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SplitDateAndQuery detects a date token (YYYY[./-]MM[./-]DD, MM[./-]DD,
// or MM月DD日?) anywhere in s and returns it alongside the remaining
// text with whitespace normalised, per spec.md §4.4.
func SplitDateAndQuery(s string) (dateText string, remainder string) {
	trimmed := strings.TrimSpace(s)

	for _, pat := range dateTokenPatterns {
		loc := pat.FindStringIndex(trimmed)
		if loc == nil {
			continue
		}
		dateText = trimmed[loc[0]:loc[1]]
		rest := trimmed[:loc[0]] + " " + trimmed[loc[1]:]
		rest = strings.TrimSpace(whitespaceRun.ReplaceAllString(rest, " "))
		return dateText, rest
	}

	return "", trimmed
}

var (
	fullDatePattern = regexp.MustCompile(`^(\d{4})[./-](\d{1,2})[./-](\d{1,2})$`)
	monthDaySlash   = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})$`)
	monthDayChinese = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日?$`)
)

// ParsedDate is the result of parsing a date_text token. Year is nil
// when the token specifies only month/day.
type ParsedDate struct {
	Year  *int
	Month int
	Day   int
}

// ParseDateText parses a date_text token into year (optional), month,
// and day. Returns ok=false when the token doesn't match any of the
// three accepted shapes or the month/day is out of range.
func ParseDateText(dateText string) (ParsedDate, bool) {
	text := strings.TrimSpace(dateText)

	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		year := atoi(m[1])
		month := atoi(m[2])
		day := atoi(m[3])
		if valid(month, day) {
			return ParsedDate{Year: &year, Month: month, Day: day}, true
		}
		return ParsedDate{}, false
	}

	if m := monthDaySlash.FindStringSubmatch(text); m != nil {
		month := atoi(m[1])
		day := atoi(m[2])
		if valid(month, day) {
			return ParsedDate{Month: month, Day: day}, true
		}
		return ParsedDate{}, false
	}

	if m := monthDayChinese.FindStringSubmatch(text); m != nil {
		month := atoi(m[1])
		day := atoi(m[2])
		if valid(month, day) {
			return ParsedDate{Month: month, Day: day}, true
		}
		return ParsedDate{}, false
	}

	return ParsedDate{}, false
}

func valid(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
