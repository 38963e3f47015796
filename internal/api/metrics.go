package api

import (
	"sync/atomic"
	"time"
)

// Metrics collects in-memory server metrics using atomic counters.
type Metrics struct {
	startTime       time.Time
	requests        atomic.Int64
	serverErrors    atomic.Int64
	clientErrors    atomic.Int64
	progressUpserts atomic.Int64
	beaconBatches   atomic.Int64
	migrations      atomic.Int64
}

// MetricsSnapshot is a point-in-time view of server metrics.
type MetricsSnapshot struct {
	UptimeSeconds   float64 `json:"uptime_seconds"`
	Requests        int64   `json:"requests"`
	ServerErrors    int64   `json:"server_errors"`
	ClientErrors    int64   `json:"client_errors"`
	ProgressUpserts int64   `json:"progress_upserts"`
	BeaconBatches   int64   `json:"beacon_batches"`
	Migrations      int64   `json:"migrations"`
}

// NewMetrics creates a new Metrics instance with the current time as start.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest increments the total request counter.
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the server error (5xx) counter.
func (m *Metrics) RecordError() {
	m.serverErrors.Add(1)
}

// RecordClientError increments the client error (4xx) counter.
func (m *Metrics) RecordClientError() {
	m.clientErrors.Add(1)
}

// RecordProgressUpserts adds n to the accepted progress upsert counter.
func (m *Metrics) RecordProgressUpserts(n int64) {
	m.progressUpserts.Add(n)
}

// RecordBeaconBatch increments the beacon batch counter.
func (m *Metrics) RecordBeaconBatch() {
	m.beaconBatches.Add(1)
}

// RecordMigration increments the migration counter.
func (m *Metrics) RecordMigration() {
	m.migrations.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
		Requests:        m.requests.Load(),
		ServerErrors:    m.serverErrors.Load(),
		ClientErrors:    m.clientErrors.Load(),
		ProgressUpserts: m.progressUpserts.Load(),
		BeaconBatches:   m.beaconBatches.Load(),
		Migrations:      m.migrations.Load(),
	}
}
