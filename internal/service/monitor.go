package service

import (
	"sync"
	"time"
)

// Monitor collects in-process counters for the admin metrics endpoint.
type Monitor struct {
	mu sync.RWMutex

	// infrastructure errors
	RedisErrors int64
	MQErrors    int64
	DBErrors    int64

	// engine counters
	TopUpRequests    int64
	DispenseRequests int64
	DispenseSuccess  int64
	DispenseFailed   int64

	// worker counters
	WorkerProcessed int64
	WorkerFailed    int64

	LastRedisError   time.Time
	LastMQError      time.Time
	LastDBError      time.Time
	LastDispenseTime time.Time
	LastWorkerTime   time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor returns the process-wide monitor.
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError counts a Redis failure.
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError counts a queue failure.
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError counts a ledger-store failure.
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordTopUpRequest counts a top-up attempt.
func (m *Monitor) RecordTopUpRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TopUpRequests++
}

// RecordDispenseRequest counts a dispense attempt.
func (m *Monitor) RecordDispenseRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DispenseRequests++
	m.LastDispenseTime = time.Now()
}

// RecordDispenseSuccess counts a committed debit.
func (m *Monitor) RecordDispenseSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DispenseSuccess++
}

// RecordDispenseFailed counts a rejected dispense.
func (m *Monitor) RecordDispenseFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DispenseFailed++
}

// RecordWorkerProcessed counts a replayed report.
func (m *Monitor) RecordWorkerProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerProcessed++
	m.LastWorkerTime = time.Now()
}

// RecordWorkerFailed counts a report the worker could not replay.
func (m *Monitor) RecordWorkerFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerFailed++
}

// GetStats returns a snapshot for the metrics endpoint.
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	successRate := float64(0)
	if m.DispenseRequests > 0 {
		successRate = float64(m.DispenseSuccess) / float64(m.DispenseRequests) * 100
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"redis": m.RedisErrors,
			"mq":    m.MQErrors,
			"db":    m.DBErrors,
		},
		"engine": map[string]interface{}{
			"topup_requests":        m.TopUpRequests,
			"dispense_requests":     m.DispenseRequests,
			"dispense_success":      m.DispenseSuccess,
			"dispense_failed":       m.DispenseFailed,
			"dispense_success_rate": successRate,
		},
		"worker": map[string]interface{}{
			"processed": m.WorkerProcessed,
			"failed":    m.WorkerFailed,
		},
		"last_events": map[string]interface{}{
			"redis_error":   m.LastRedisError,
			"mq_error":      m.LastMQError,
			"db_error":      m.LastDBError,
			"last_dispense": m.LastDispenseTime,
			"last_worker":   m.LastWorkerTime,
		},
	}
}

// Reset clears all counters.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors = 0
	m.MQErrors = 0
	m.DBErrors = 0
	m.TopUpRequests = 0
	m.DispenseRequests = 0
	m.DispenseSuccess = 0
	m.DispenseFailed = 0
	m.WorkerProcessed = 0
	m.WorkerFailed = 0
}
