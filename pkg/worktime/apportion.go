package worktime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	MinutesPerDay = 1440

	// RegularCutoff is 17:30; minutes before it count as regular time.
	RegularCutoff = 17*60 + 30
	// OvertimeStart is 18:30; minutes from here to midnight count as overtime.
	OvertimeStart = 18*60 + 30
)

var ErrInvalidTime = errors.New("invalid time of day, expected HH:MM")

var clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Split is the result of apportioning a start/end interval into regular, break and overtime time.
type Split struct {
	ElapsedMinutes  int             `json:"elapsed_minutes"`
	RegularMinutes  int             `json:"regular_minutes"`
	OvertimeMinutes int             `json:"overtime_minutes"`
	BreakMinutes    int             `json:"break_minutes"`
	RegularHours    decimal.Decimal `json:"regular_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
}

// ParseClock converts "HH:MM" into minutes past midnight.
func ParseClock(s string) (int, error) {
	m := clockRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return hh*60 + mm, nil
}

// FormatClock renders minutes past midnight as "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ElapsedMinutes returns the length of [start, end) on a 24h clock, wrapping past midnight when end
// is earlier than start. Equal times are a zero-length interval.
func ElapsedMinutes(start, end int) int {
	switch {
	case end == start:
		return 0
	case end > start:
		return end - start
	default:
		return MinutesPerDay - start + end
	}
}

// ApportionHours splits the interval between two "HH:MM" clock times into regular and overtime hours.
// Minutes in [17:30, 18:30) are an unpaid break and are counted in neither total.
func ApportionHours(start, end string) (Split, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Split{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Split{}, fmt.Errorf("end: %w", err)
	}
	return ApportionMinutes(s, e), nil
}

// ApportionMinutes is ApportionHours over already parsed minute values in [0, 1440).
func ApportionMinutes(start, end int) Split {
	elapsed := ElapsedMinutes(start, end)
	from, to := start, start+elapsed

	// The interval lives on a two-day axis [0, 2880); each day repeats the same segments.
	regular := overlap(from, to, 0, RegularCutoff) + overlap(from, to, MinutesPerDay, MinutesPerDay+RegularCutoff)
	overtime := overlap(from, to, OvertimeStart, MinutesPerDay) + overlap(from, to, MinutesPerDay+OvertimeStart, 2*MinutesPerDay)

	return Split{
		ElapsedMinutes:  elapsed,
		RegularMinutes:  regular,
		OvertimeMinutes: overtime,
		BreakMinutes:    elapsed - regular - overtime,
		RegularHours:    MinutesToHours(regular),
		OvertimeHours:   MinutesToHours(overtime),
	}
}

// MinutesToHours converts minutes to hours rounded to two decimal places.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

func overlap(a1, a2, b1, b2 int) int {
	lo := max(a1, b1)
	hi := min(a2, b2)
	if hi <= lo {
		return 0
	}
	return hi - lo
}
