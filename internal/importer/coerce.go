package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// genericLayouts are tried first, in order. Layouts without a zone are read in the import location.
var genericLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
}

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serials outside 1970-01-01 .. 9999-12-31 are not dates; small numbers are usually years or hours.
const (
	minSerial = 25569
	maxSerial = 2958465
)

var (
	clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	// numberPrefix is the leading number of text such as "5 hrs" or "2,5h".
	numberPrefix = regexp.MustCompile(`^[-+]?(\d+([.,]\d*)?|[.,]\d+)([eE][-+]?\d+)?`)
)

// parseDate applies the date policy: generic layouts, slash dates with a
// day-first heuristic, literal year-month-day, then spreadsheet serials.
// ok is false when every step fails.
func parseDate(c Cell, loc *time.Location) (time.Time, bool) {
	switch c.Kind {
	case KindEmpty, KindBool:
		return time.Time{}, false
	case KindNumber:
		return parseSerial(c.Number, loc)
	}

	s := c.Raw

	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	if strings.Contains(s, "/") {
		return parseSlashDate(s, loc)
	}

	if strings.Contains(s, "-") {
		return parseDashDate(s, loc)
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return parseSerial(d, loc)
	}

	return time.Time{}, false
}

// parseSlashDate reads "M/D/YYYY", or "D/M/YYYY" when the first component is
// above 12, optionally followed by "H:MM" and a parenthesized zone note.
func parseSlashDate(s string, loc *time.Location) (time.Time, bool) {
	tokens := strings.Fields(s)

	parts := strings.Split(tokens[0], "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)

	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, false
		}

		nums[i] = n
	}

	month, day, year := nums[0], nums[1], nums[2]
	if nums[0] > 12 {
		day, month = nums[0], nums[1]
	}

	if len(parts[2]) <= 2 {
		year += 2000
	}

	hour, minute, sec := 0, 0, 0

	if len(tokens) > 1 {
		clock := strings.Trim(tokens[1], "()")
		if m := clockPattern.FindStringSubmatch(clock); m != nil {
			hour, _ = strconv.Atoi(m[1])
			minute, _ = strconv.Atoi(m[2])

			if m[3] != "" {
				sec, _ = strconv.Atoi(m[3])
			}

			if hour > 23 || minute > 59 || sec > 59 {
				hour, minute, sec = 0, 0, 0
			}
		}
	}

	return civilDate(year, month, day, hour, minute, sec, loc)
}

// parseDashDate reads a literal year-month-day, ignoring anything after the first space.
func parseDashDate(s string, loc *time.Location) (time.Time, bool) {
	parts := strings.Split(strings.Fields(s)[0], "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)

	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, false
		}

		nums[i] = n
	}

	return civilDate(nums[0], nums[1], nums[2], 0, 0, 0, loc)
}

// parseSerial converts a spreadsheet serial day count. The calendar date and
// time of day are taken in UTC and placed in loc.
func parseSerial(d decimal.Decimal, loc *time.Location) (time.Time, bool) {
	if d.LessThan(decimal.NewFromInt(minSerial)) || !d.LessThan(decimal.NewFromInt(maxSerial+1)) {
		return time.Time{}, false
	}

	days := d.IntPart()
	secs := d.Sub(decimal.NewFromInt(days)).Mul(decimal.NewFromInt(86400)).Round(0).IntPart()

	t := serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
}

// civilDate builds a date, rejecting out-of-range components instead of normalizing them.
func civilDate(year, month, day, hour, minute, sec int, loc *time.Location) (time.Time, bool) {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	return t, true
}

// parseNumber reads a finite decimal, accepting a decimal comma and ignoring a
// trailing unit after the leading number.
func parseNumber(c Cell) (decimal.Decimal, bool) {
	switch c.Kind {
	case KindNumber:
		return c.Number, true
	case KindText:
		s := numberPrefix.FindString(strings.TrimSpace(c.Raw))
		if s == "" {
			return decimal.Decimal{}, false
		}

		d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
		if err != nil {
			return decimal.Decimal{}, false
		}

		return d, true
	}

	return decimal.Decimal{}, false
}

// parsePositive reads a number greater than zero.
func parsePositive(c Cell) (decimal.Decimal, bool) {
	d, ok := parseNumber(c)
	if !ok || !d.IsPositive() {
		return decimal.Decimal{}, false
	}

	return d, true
}

// parseNonNegative reads a number of zero or more.
func parseNonNegative(c Cell) (decimal.Decimal, bool) {
	d, ok := parseNumber(c)
	if !ok || d.IsNegative() {
		return decimal.Decimal{}, false
	}

	return d, true
}

// parseBool is true for a native true, the number 1, or text true|yes|y|1 in any case.
func parseBool(c Cell) bool {
	switch c.Kind {
	case KindBool:
		return c.Bool
	case KindNumber:
		return c.Number.Equal(decimal.NewFromInt(1))
	case KindText:
		switch strings.ToLower(c.Raw) {
		case "true", "yes", "y", "1":
			return true
		}
	}

	return false
}
