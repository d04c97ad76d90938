// Package capture is the wire-traffic flight recorder.
//
// Every line exchanged with the pidcc worker, plus lifecycle and
// timeout events, lands here as a timestamped event in a fixed-size
// ring. The ring answers "what did the track see in the last minute"
// over the HTTP API without any storage dependency; an optional sink
// mirrors events to a time-series database for longer retention.
package capture
