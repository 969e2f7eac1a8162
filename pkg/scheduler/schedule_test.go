package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/scheduler"
)

func TestIntervalSchedule(t *testing.T) {
	t.Parallel()

	s := scheduler.EveryInterval(30 * time.Second)
	base := time.Now()
	assert.Equal(t, base.Add(30*time.Second), s.Next(base))
	assert.Equal(t, "every 30s", s.String())

	s = scheduler.EveryMinutes(5)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	assert.Equal(t, "every 5m0s", s.String())
}

func TestHourlySchedule(t *testing.T) {
	t.Parallel()

	s := scheduler.HourlyAt(15)
	assert.Equal(t, "hourly at :15", s.String())

	base := time.Date(2026, 1, 1, 10, 10, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), s.Next(base))

	base = time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 11, 15, 0, 0, time.UTC), s.Next(base))
}

func TestDailySchedule(t *testing.T) {
	t.Parallel()

	s := scheduler.DailyAt(3, 30)
	assert.Equal(t, "daily at 03:30", s.String())

	before := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 3, 30, 0, 0, time.UTC), s.Next(before))

	after := time.Date(2026, 12, 31, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 1, 3, 30, 0, 0, time.UTC), s.Next(after))
}

func TestParseDaily(t *testing.T) {
	t.Parallel()

	s, err := scheduler.ParseDaily("03:00")
	require.NoError(t, err)
	assert.Equal(t, "daily at 03:00", s.String())

	_, err = scheduler.ParseDaily("3am")
	assert.ErrorIs(t, err, scheduler.ErrInvalidSchedule)
}
