package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_UnixMethods(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tt := Time(now)

	assert.Equal(t, now.Unix(), tt.Unix())
	assert.Equal(t, now.UnixMilli(), tt.UnixMilli())
	assert.Equal(t, now.UnixMicro(), tt.UnixMicro())
	assert.Equal(t, now.UnixNano(), tt.UnixNano())

	// 确认返回的是固定值而非 time.Now()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, now.Unix(), tt.Unix())
}

func TestTime_JSONRoundTrip(t *testing.T) {
	src := Time(time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.Local))

	data, err := json.Marshal(src)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-06 07:08:09.123"`, string(data))

	var dst Time
	require.NoError(t, json.Unmarshal(data, &dst))
	assert.Equal(t, src.UnixMilli(), dst.UnixMilli())

	zero, err := json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(zero))
}

func TestTime_Scan(t *testing.T) {
	var tt Time
	now := time.Now()
	require.NoError(t, tt.Scan(now))
	assert.Equal(t, now.UnixNano(), tt.UnixNano())

	require.NoError(t, tt.Scan("2024-01-02 03:04:05"))
	assert.Equal(t, 2024, tt.Time().Year())

	assert.Error(t, tt.Scan(42))
}
