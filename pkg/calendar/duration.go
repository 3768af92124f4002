package calendar

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var isoDuration = regexp.MustCompile(`^(-)?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+(?:[.,]\d+)?)H)?(?:(\d+(?:[.,]\d+)?)M)?(?:(\d+(?:[.,]\d+)?)S)?)?$`)

var clockDuration = regexp.MustCompile(`^(-)?(?:(\d+) (?:days?, )?)?(?:(\d+):)??(?:(\d+):)?(\d+)(?:[.,](\d{1,9}))?$`)

// ParseDuration reads an ISO-8601 duration (PT1H30M, P1DT2H) or the
// "[D ]HH:MM:SS[.ffffff]" form Django renders for DurationField.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDuration)
	}
	if strings.HasPrefix(value, "P") || strings.HasPrefix(value, "-P") {
		return parseISODuration(value)
	}
	return parseClockDuration(value)
}

func parseISODuration(value string) (time.Duration, error) {
	m := isoDuration.FindStringSubmatch(value)
	if m == nil || strings.HasSuffix(value, "T") || strings.TrimPrefix(value, "-") == "P" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
	}
	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total float64
	for i, unit := range units {
		part := m[i+2]
		if part == "" {
			continue
		}
		n, err := strconv.ParseFloat(strings.Replace(part, ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
		}
		total += n * float64(unit)
	}
	if total >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, value)
	}
	d := time.Duration(math.Round(total))
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

func parseClockDuration(value string) (time.Duration, error) {
	m := clockDuration.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
	}
	type component struct {
		digits string
		unit   time.Duration
	}
	parts := []component{
		{m[2], 24 * time.Hour},
		{m[3], time.Hour},
		{m[4], time.Minute},
		{m[5], time.Second},
	}
	if frac := m[6]; frac != "" {
		parts = append(parts, component{frac + strings.Repeat("0", 9-len(frac)), time.Nanosecond})
	}
	var d time.Duration
	for _, part := range parts {
		if part.digits == "" {
			continue
		}
		n, err := strconv.ParseInt(part.digits, 10, 64)
		if err != nil || n > int64(math.MaxInt64/part.unit) {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, value)
		}
		step := time.Duration(n) * part.unit
		if d > math.MaxInt64-step {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, value)
		}
		d += step
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

// FormatDuration renders d as an ISO-8601 duration limited to hours,
// minutes and seconds, e.g. PT1H30M. Zero renders as PT0S.
func FormatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteString("PT")
	if d == 0 {
		b.WriteString("0S")
		return b.String()
	}
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if d > 0 {
		b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
		b.WriteByte('S')
	}
	return b.String()
}

// formatMinutes renders d as a whole number of minutes, PT20M.
func formatMinutes(d time.Duration) string {
	return fmt.Sprintf("PT%dM", int64(d.Round(time.Minute)/time.Minute))
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseTime reads an RFC 3339 timestamp, or a naive date-time in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTime)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
}
