package market

import (
	"time"
)

// Session is the US equity trading session a moment falls in.
type Session string

const (
	SessionPreMarket  Session = "pre_market"
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "after_hours"
	SessionClosed     Session = "closed"
)

const daysPerWeek = 7

// Sessions lists every session in trading day order.
var Sessions = []Session{SessionPreMarket, SessionRegular, SessionAfterHours, SessionClosed}

var newYork = loadNewYork()

func loadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// EasternTime converts t to New York time.
func EasternTime(t time.Time) time.Time {
	return t.In(newYork)
}

// SessionAt classifies t. Extended hours run 04:00-09:30 and 16:00-20:00 ET;
// weekends and exchange holidays are closed all day.
func SessionAt(t time.Time) Session {
	et := EasternTime(t)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday || IsHoliday(et) {
		return SessionClosed
	}

	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes < 4*60:
		return SessionClosed
	case minutes < 9*60+30:
		return SessionPreMarket
	case minutes < 16*60:
		return SessionRegular
	case minutes < 20*60:
		return SessionAfterHours
	default:
		return SessionClosed
	}
}

// IsHoliday reports whether the calendar date of t is a full exchange
// holiday. Early closes are treated as regular days.
func IsHoliday(t time.Time) bool {
	return isDateAmong(t, holidays(t.Year()))
}

func holidays(year int) []time.Time {
	return []time.Time{
		observed(date(year, time.January, 1)),
		nthWeekday(year, time.January, time.Monday, 3),
		nthWeekday(year, time.February, time.Monday, 3),
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday),
		observed(date(year, time.June, 19)),
		observed(date(year, time.July, 4)),
		nthWeekday(year, time.September, time.Monday, 1),
		nthWeekday(year, time.November, time.Thursday, 4),
		observed(date(year, time.December, 25)),
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// observed moves Saturday holidays to Friday and Sunday holidays to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

// nthWeekday returns the n-th (1-based) given weekday of a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := date(year, month, 1)
	offset := int(weekday-first.Weekday()+daysPerWeek) % daysPerWeek
	return first.AddDate(0, 0, offset+(n-1)*daysPerWeek)
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := date(year, month+1, 1).AddDate(0, 0, -1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// goodFriday is two days before Western Easter (anonymous Gregorian algorithm).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return date(year, time.Month(month), day).AddDate(0, 0, -2)
}

func isDateAmong(t time.Time, dates []time.Time) bool {
	key := t.Format("2006-01-02")
	for _, d := range dates {
		if d.Format("2006-01-02") == key {
			return true
		}
	}
	return false
}
