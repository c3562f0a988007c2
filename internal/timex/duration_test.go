package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `"3s"`, want: 3 * time.Second},
		{name: "nanoseconds", in: `1500`, want: 1500},
		{name: "bad string", in: `"soon"`, wantErr: true},
		{name: "bool", in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 250 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, `"250ms"`, string(b))
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2026, 3, 1, 23, 59, 0, 0, loc)
	b := time.Date(2026, 3, 2, 0, 1, 0, 0, loc)

	assert.Equal(t, 1, DaysBetween(a, b, loc))
	assert.Equal(t, -1, DaysBetween(b, a, loc))
	assert.Equal(t, 0, DaysBetween(a, a.Add(time.Minute-time.Second), loc))
	assert.True(t, SameDay(a, a.Add(-time.Hour), loc))
	assert.False(t, SameDay(a, b, loc))
}
