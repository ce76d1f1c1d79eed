package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func et(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, newYork)
}

func TestSessionAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want Session
	}{
		{"overnight", et(2024, time.March, 5, 3, 59), SessionClosed},
		{"pre-market open", et(2024, time.March, 5, 4, 0), SessionPreMarket},
		{"just before the bell", et(2024, time.March, 5, 9, 29), SessionPreMarket},
		{"opening bell", et(2024, time.March, 5, 9, 30), SessionRegular},
		{"midday", et(2024, time.March, 5, 12, 0), SessionRegular},
		{"closing bell", et(2024, time.March, 5, 16, 0), SessionAfterHours},
		{"late evening", et(2024, time.March, 5, 20, 0), SessionClosed},
		{"saturday", et(2024, time.March, 9, 12, 0), SessionClosed},
		{"sunday", et(2024, time.March, 10, 12, 0), SessionClosed},
		{"thanksgiving", et(2024, time.November, 28, 12, 0), SessionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionAt(tt.at))
		})
	}
}

func TestSessionAtConvertsFromUTC(t *testing.T) {
	// 14:30 UTC is 09:30 EST in winter and 10:30 EDT in summer.
	assert.Equal(t, SessionRegular, SessionAt(time.Date(2024, time.January, 10, 14, 30, 0, 0, time.UTC)))
	assert.Equal(t, SessionPreMarket, SessionAt(time.Date(2024, time.January, 10, 14, 29, 0, 0, time.UTC)))
	assert.Equal(t, SessionRegular, SessionAt(time.Date(2024, time.July, 10, 13, 30, 0, 0, time.UTC)))
}

func TestIsHoliday(t *testing.T) {
	holidays := []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.November, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.December, 26, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range holidays {
		assert.True(t, IsHoliday(d), d.Format("2006-01-02"))
	}

	assert.False(t, IsHoliday(time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC)))
	assert.False(t, IsHoliday(time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC)))
}
