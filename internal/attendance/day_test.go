package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayOfCrossesMidnightByTimezone(t *testing.T) {
	loc := madrid(t)
	// 23:30 UTC on the 9th is already the 10th in Madrid.
	instant := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)

	require.Equal(t, "2025-03-10", DayOf(instant, loc).String())
	require.Equal(t, "2025-03-09", DayOf(instant, time.UTC).String())
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay(" 2025-02-28 ")
	require.NoError(t, err)
	require.Equal(t, Day{Year: 2025, Month: time.February, Day: 28}, day)
	require.Equal(t, "2025-03-01", day.AddDays(1).String())
	require.True(t, day.Before(day.AddDays(1)))

	_, err = ParseDay("28/02/2025")
	require.Error(t, err)
}

func TestParseClockTime(t *testing.T) {
	ct, err := ParseClockTime("09:10")
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 9, Minute: 10}, ct)
	require.Equal(t, "09:10", ct.String())
	require.Equal(t, "10 9 * * *", ct.CronSpec())

	for _, bad := range []string{"", "9", "24:00", "09:60", "aa:bb"} {
		_, err := ParseClockTime(bad)
		require.Error(t, err, bad)
	}
}
