// Package influxdb provides InfluxDB connectivity for the HouseDCC service.
//
// It wraps the official influxdb-client-go v2 library with HouseDCC-specific
// patterns for connection management, event writing, and health monitoring.
//
// # Purpose
//
// This package mirrors the DCC flight recorder into time-series storage:
// every wire event (commands written to the pidcc worker, worker reports
// read back, deadline timeouts) becomes a point in the dcc_wire
// measurement, tagged by category. That keeps a durable, queryable trail
// of track activity beyond the in-memory capture ring.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	recorder.SetSink(client) // Client implements capture.Sink
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead when the railroad is busy.
package influxdb
