package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalGzipRoundTrips(t *testing.T) {
	at := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	s := Snapshot{Time: at, Devices: map[string]int{"CPU": 3, "GPU:0": 1}}

	data, err := s.MarshalGzip()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := UnmarshalGzip(data)
	require.NoError(t, err)
	assert.True(t, got.Time.Equal(at))
	assert.Equal(t, s.Devices, got.Devices)
}

func TestUnmarshalGzipRejectsGarbage(t *testing.T) {
	_, err := UnmarshalGzip([]byte("not gzip"))
	assert.Error(t, err)
}
