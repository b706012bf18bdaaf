package monitor

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/vk/tensorsched/internal/scheduler"
)

// Snapshot is the live state pushed to monitor clients: a point-in-time
// queue length per device.
type Snapshot struct {
	Time    time.Time      `json:"time"`
	Devices map[string]int `json:"devices"`
}

// BuildSnapshot reads reg's current queue lengths. at is passed in rather
// than taken internally, since Date.now()-style wall-clock reads don't
// belong inside a pure snapshot helper a caller might want to test
// deterministically.
func BuildSnapshot(reg *scheduler.DeviceRegistry, at time.Time) Snapshot {
	return Snapshot{Time: at, Devices: reg.Snapshot()}
}

// MarshalGzip encodes s as JSON and compresses it, for a one-shot export
// endpoint that doesn't need the live websocket push.
func (s Snapshot) MarshalGzip() ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(s); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalGzip decodes a payload produced by MarshalGzip.
func UnmarshalGzip(data []byte) (Snapshot, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return Snapshot{}, err
	}
	defer gz.Close()

	var s Snapshot
	if err := json.NewDecoder(gz).Decode(&s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
