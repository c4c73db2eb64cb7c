package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		want    time.Time
		wantErr bool
	}{
		{spec: "2h", want: time.Date(2025, 10, 29, 10, 0, 0, 0, time.UTC)},
		{spec: "1h30m", want: time.Date(2025, 10, 29, 10, 30, 0, 0, time.UTC)},
		{spec: "2025-10-01T08:00:00Z", want: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)},
		{spec: "2025-10-01T10:00:00+02:00", want: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)},
		{spec: "2025-10-01", want: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{spec: "", wantErr: true},
		{spec: "-1h", wantErr: true},
		{spec: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseRange(t *testing.T) {
	since, until, err := ParseRange("48h", "2025-10-29", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC), since)
	assert.Equal(t, time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC), until)

	since, until, err = ParseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, since.IsZero())
	assert.True(t, until.IsZero())

	_, _, err = ParseRange("1h", "2h", now)
	assert.ErrorContains(t, err, "--since must be before --until")

	_, _, err = ParseRange("bogus", "", now)
	assert.ErrorContains(t, err, "invalid --since")

	_, _, err = ParseRange("", "bogus", now)
	assert.ErrorContains(t, err, "invalid --until")
}
