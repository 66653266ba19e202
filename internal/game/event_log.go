package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize       = 1024                   // Ring buffer size
	MaxEventsPerSec       = 2000                   // Global rate limit
	MaxEventsPerSession   = 50                     // Per-session rate limit per second
	BatchFlushSize        = 64                     // Events per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	SessionLimiterCleanup = 5 * time.Minute        // Cleanup interval for session limiters
)

// EventLog provides bounded, rate-limited event logging with backpressure.
// It is shared by every session of a process.
type EventLog struct {
	// Ring buffer; many sessions produce, one writer consumes
	mu        sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64
	readHead  uint64
	sequence  uint64

	globalLimiter   *rate.Limiter
	sessionLimiters sync.Map // map[string]*sessionLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
	writtenCount uint64 // atomic
}

type sessionLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log. Nothing is recorded until Start.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer.
// An empty path keeps events in memory only (counted, then discarded).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes pending events and closes the file. Safe to call more than once.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		wasRunning := el.running.Swap(false)
		close(el.stopChan)
		if wasRunning {
			el.writerWg.Wait()
		}

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event with rate limiting.
// Returns false if the log is stopped or the event was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if el == nil || !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	// A single runaway session must not starve the others
	if event.SessionID != "" && !el.sessionLimiter(event.SessionID).Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	el.mu.Lock()
	if el.writeHead-el.readHead >= EventBufferSize {
		// Full: drop the oldest
		el.readHead++
		atomic.AddUint64(&el.droppedCount, 1)
	}
	el.sequence++
	event.Sequence = el.sequence
	el.buffer[el.writeHead%EventBufferSize] = event
	el.writeHead++
	el.mu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and emits an event in one call
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, sessionID string, payload interface{}) bool {
	if el == nil || !el.running.Load() {
		return false
	}
	return el.Emit(NewEvent(eventType, tickNum, sessionID, payload))
}

func (el *EventLog) sessionLimiter(sessionID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.sessionLimiters.Load(sessionID); ok {
		entry := v.(*sessionLimiterEntry)
		entry.lastUsed.Store(now)
		return entry.limiter
	}

	entry := &sessionLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSession, MaxEventsPerSession/5),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sessionLimiters.LoadOrStore(sessionID, entry)
	return actual.(*sessionLimiterEntry).limiter
}

// ForgetSession drops the limiter of a finished session
func (el *EventLog) ForgetSession(sessionID string) {
	if el == nil {
		return
	}
	el.sessionLimiters.Delete(sessionID)
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Final flush drains everything still buffered
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SessionLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSessionLimiters(time.Now().Add(-SessionLimiterCleanup))
		}
	}
}

func (el *EventLog) cleanupSessionLimiters(cutoff time.Time) {
	el.sessionLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*sessionLimiterEntry)
		if entry.lastUsed.Load() < cutoff.UnixNano() {
			el.sessionLimiters.Delete(key)
		}
		return true
	})
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
		el.readHead++
	}
	return batch
}

// flushBatch appends events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	w := bufio.NewWriter(el.file)
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		w.Write(data)
		w.WriteByte('\n')
		atomic.AddUint64(&el.writtenCount, 1)
	}
	w.Flush()
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.writeHead - el.readHead
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"written": atomic.LoadUint64(&el.writtenCount),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of accepted events
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
