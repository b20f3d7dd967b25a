package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNullTime(t *testing.T) {
	tests := []struct {
		input string
		valid bool
		want  time.Time
	}{
		{"2024-03-05T10:11:12Z", true, time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC)},
		{"2024-03-05", true, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05 10:11:12", true, time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC)},
		{"05/03/2024", true, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"0", true, time.Unix(0, 0)},
		{"", false, time.Time{}},
		{"yesterday", false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseNullTime(tt.input)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
			}
		})
	}
}

func TestNullTime_JSON(t *testing.T) {
	var payload struct {
		Date NullTime `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-02"}`), &payload))
	assert.True(t, payload.Date.Valid)
	assert.Equal(t, "02/01/2024", payload.Date.Format("02/01/2006"))

	require.NoError(t, json.Unmarshal([]byte(`{"date":null}`), &payload))
	assert.False(t, payload.Date.Valid)

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":""}`, string(b))
}

func TestNullTime_ScanValue(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	var nt NullTime
	require.NoError(t, nt.Scan(now))
	assert.True(t, nt.Valid)

	v, err := nt.Value()
	require.NoError(t, err)
	assert.Equal(t, now, v)

	require.NoError(t, nt.Scan(nil))
	v, err = nt.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
