package syncengine

import (
	"sync"
	"time"

	"github.com/ifuryst/agencylens/internal/metrics"
)

// Performance is the run summary returned to callers
type Performance struct {
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	DurationMs       int64     `json:"duration"`
	BatchesProcessed int       `json:"batchesProcessed"`
	SuccessCount     int       `json:"successCount"`
	ErrorCount       int       `json:"errorCount"`
}

// Tracker accumulates batch results for one run and mirrors them to prometheus
type Tracker struct {
	mu      sync.Mutex
	clock   Clock
	perf    Performance
	started bool
}

func NewTracker(clock Clock) *Tracker {
	if clock == nil {
		clock = SystemClock
	}
	return &Tracker{clock: clock}
}

func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perf = Performance{StartTime: t.clock.Now()}
	t.started = true
}

func (t *Tracker) RecordBatch(results []CompanyResult, took time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.perf.BatchesProcessed++
	for _, r := range results {
		if r.Success {
			t.perf.SuccessCount++
		} else {
			t.perf.ErrorCount++
		}
		for _, task := range r.Platforms {
			metrics.SyncTaskOutcomes.WithLabelValues(string(task.Platform), string(task.Outcome)).Inc()
			if task.Rows > 0 {
				metrics.SyncTaskRows.WithLabelValues(string(task.Platform)).Add(float64(task.Rows))
			}
		}
	}
	metrics.SyncBatchesProcessed.Inc()
	metrics.SyncBatchDuration.Observe(took.Seconds())
}

// Finish stamps the end time and returns the summary
func (t *Tracker) Finish() Performance {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		t.perf.StartTime = t.clock.Now()
	}
	t.perf.EndTime = t.clock.Now()
	t.perf.DurationMs = t.perf.EndTime.Sub(t.perf.StartTime).Milliseconds()
	return t.perf
}
