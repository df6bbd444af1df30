package wherelib

import (
	"encoding/json"
	"sync"
	"time"
)

// UsageStats keeps track of how a source behaves.
type UsageStats struct {
	Name string

	mutex        sync.Mutex
	lastUsed     time.Time
	lastError    string
	successCount uint64
	failureCount uint64
	totalLatency time.Duration
}

// Used registers a call which took elapsed time.
func (u *UsageStats) Used(err error, elapsed time.Duration) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUsed = now
	u.totalLatency += elapsed

	if err == nil {
		u.successCount++
	} else {
		u.failureCount++
		u.lastError = err.Error()
	}
}

func (u *UsageStats) MarshalJSON() ([]byte, error) {
	var lastUsedTime int64

	var avgLatency float64

	u.mutex.Lock()

	if !u.lastUsed.IsZero() {
		lastUsedTime = u.lastUsed.Unix()
	}

	if calls := u.successCount + u.failureCount; calls > 0 {
		avgLatency = roundTo(float64(u.totalLatency.Milliseconds())/float64(calls), 2)
	}

	rawStruct := struct {
		Name         string  `json:"name"`
		LastUsed     int64   `json:"last_used"`
		LastError    string  `json:"last_error,omitempty"`
		SuccessCount uint64  `json:"success_count"`
		FailureCount uint64  `json:"failure_count"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	}{
		Name:         u.Name,
		LastUsed:     lastUsedTime,
		LastError:    u.lastError,
		SuccessCount: u.successCount,
		FailureCount: u.failureCount,
		AvgLatencyMs: avgLatency,
	}

	u.mutex.Unlock()

	return json.Marshal(&rawStruct)
}
