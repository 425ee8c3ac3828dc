package core

import (
	"strconv"
	"strings"
	"time"
)

// Months lists the calendar months in display order.
var Months = []time.Month{
	time.January, time.February, time.March, time.April,
	time.May, time.June, time.July, time.August,
	time.September, time.October, time.November, time.December,
}

// MonthID returns the two digit identifier of a month, "03" for March.
func MonthID(m time.Month) string {
	if m < 10 {
		return "0" + strconv.Itoa(int(m))
	}
	return strconv.Itoa(int(m))
}

// ParseMonthID accepts "03", "3" or an English month name.
func ParseMonthID(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, ErrInvalidMonth
		}
		return time.Month(n), nil
	}
	for _, m := range Months {
		if strings.EqualFold(s, m.String()) || strings.EqualFold(s, m.String()[:3]) {
			return m, nil
		}
	}
	return 0, ErrInvalidMonth
}
