package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/pascal-fb-martin/housedcc/internal/capture"
)

// wireMeasurement is the measurement name for DCC wire traffic events.
const wireMeasurement = "dcc_wire"

// WriteEvent records a single flight-recorder event as a time-series
// point. It implements capture.Sink, so a Client can be attached to the
// recorder to mirror wire traffic into InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Events are silently dropped while disconnected.
func (c *Client) WriteEvent(ev capture.Event) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		wireMeasurement,
		map[string]string{
			"category": ev.Category,
		},
		map[string]interface{}{
			"text": ev.Text,
		},
		ev.Time,
	)

	c.writeAPI.WritePoint(point)
}
