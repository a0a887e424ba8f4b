package worklog_test

import (
	"testing"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/stretchr/testify/require"
)

func TestQuantizeHours(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    float64
	}{
		{"zero", 0, 0},
		{"negative", -100, 0},
		{"one second rounds up to a block", 1, 0.25},
		{"exactly one block", 900, 0.25},
		{"one block plus a second", 901, 0.5},
		{"one hour", 3600, 1.0},
		{"scheduler fallback of three hours", 10800, 3.0},
		{"ninety minutes", 5400, 1.5},
		{"just under a day", 86399, 24.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, worklog.QuantizeHours(tt.seconds))
		})
	}
}

func TestQuantizeHoursAlwaysQuarterSteps(t *testing.T) {
	for s := int64(1); s < 20000; s += 137 {
		hours := worklog.QuantizeHours(s)
		blocks := hours / 0.25
		require.Equal(t, float64(int64(blocks)), blocks, "seconds=%d", s)
		require.GreaterOrEqual(t, hours*3600, float64(s), "quantized time never undercounts")
	}
}

func TestDayOfWeek(t *testing.T) {
	// Sunday maps to 1, Saturday to 7.
	sunday := mustDate(t, "2025-08-31")
	require.Equal(t, 1, worklog.DayOfWeek(sunday))
	require.Equal(t, 2, worklog.DayOfWeek(sunday.AddDate(0, 0, 1)))
	require.Equal(t, 7, worklog.DayOfWeek(sunday.AddDate(0, 0, 6)))
}
