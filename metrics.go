package graphvec

import "time"

// MetricsCollector receives operational metrics. Implement it to integrate
// with a monitoring system; every hook must be safe for concurrent use.
type MetricsCollector interface {
	// RecordInsert is called after each add/insert; err is nil on success.
	RecordInsert(duration time.Duration, err error)

	// RecordSearch is called after each k-NN search.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordRemove is called after each remove.
	RecordRemove(duration time.Duration, err error)

	// RecordImport is called once per bulk import with the number of
	// vertices and edges materialized.
	RecordImport(vertices, edges int, duration time.Duration)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)      {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)      {}
func (NoopMetricsCollector) RecordImport(int, int, time.Duration)   {}
