package ring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks ring performance metrics.
type Statistics struct {
	// Atomic counters for thread-safe updates
	appends   int64
	reads     int64
	overflows int64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Append records an append operation.
func (s *Statistics) Append() {
	atomic.AddInt64(&s.appends, 1)
}

// Read records a snapshot or window read.
func (s *Statistics) Read() {
	atomic.AddInt64(&s.reads, 1)
}

// Overflow records an evicting append.
func (s *Statistics) Overflow() {
	atomic.AddInt64(&s.overflows, 1)
}

// UpdateSize updates the current element count.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Appends returns the total number of append operations.
func (s *Statistics) Appends() int64 {
	return atomic.LoadInt64(&s.appends)
}

// Reads returns the total number of read operations.
func (s *Statistics) Reads() int64 {
	return atomic.LoadInt64(&s.reads)
}

// Overflows returns the total number of evicting appends.
func (s *Statistics) Overflows() int64 {
	return atomic.LoadInt64(&s.overflows)
}

// CurrentSize returns the current number of buffered elements.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the high-water element count.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Throughput returns the average number of appends per second.
func (s *Statistics) Throughput() float64 {
	s.mu.RLock()
	elapsed := time.Since(s.startTime)
	s.mu.RUnlock()

	if elapsed == 0 {
		return 0.0
	}

	return float64(s.Appends()) / elapsed.Seconds()
}

// OverflowRate returns the fraction of appends that evicted (0.0 to 1.0).
func (s *Statistics) OverflowRate() float64 {
	appends := s.Appends()
	if appends == 0 {
		return 0.0
	}
	return float64(s.Overflows()) / float64(appends)
}

// Utilization returns current fill level as a fraction of capacity.
func (s *Statistics) Utilization(capacity int64) float64 {
	if capacity == 0 {
		return 0.0
	}
	return float64(s.CurrentSize()) / float64(capacity)
}

// Uptime returns how long the ring has been tracked.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Reset resets all statistics to zero.
func (s *Statistics) Reset() {
	atomic.StoreInt64(&s.appends, 0)
	atomic.StoreInt64(&s.reads, 0)
	atomic.StoreInt64(&s.overflows, 0)

	s.mu.Lock()
	s.startTime = time.Now()
	s.currentSize = 0
	s.maxSize = 0
	s.mu.Unlock()
}

// StatsSummary is a point-in-time snapshot of all statistics.
type StatsSummary struct {
	Appends      int64         `json:"appends"`
	Reads        int64         `json:"reads"`
	Overflows    int64         `json:"overflows"`
	CurrentSize  int64         `json:"current_size"`
	MaxSize      int64         `json:"max_size"`
	Throughput   float64       `json:"throughput"`
	OverflowRate float64       `json:"overflow_rate"`
	Uptime       time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Appends:      s.Appends(),
		Reads:        s.Reads(),
		Overflows:    s.Overflows(),
		CurrentSize:  s.CurrentSize(),
		MaxSize:      s.MaxSize(),
		Throughput:   s.Throughput(),
		OverflowRate: s.OverflowRate(),
		Uptime:       s.Uptime(),
	}
}
