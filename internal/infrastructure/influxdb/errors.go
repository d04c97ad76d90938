package influxdb

import "errors"

var (
	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates the InfluxDB mirror is turned off in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
