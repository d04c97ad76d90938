package influxdb

import (
	"errors"
	"testing"
	"time"

	"github.com/pascal-fb-martin/housedcc/internal/capture"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: false,
		URL:     "http://localhost:8086",
	}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestWriteEvent_Disconnected(t *testing.T) {
	client := &Client{}

	// Must not panic or touch the write API while disconnected.
	client.WriteEvent(capture.Event{
		Time:     time.Now(),
		Category: capture.CategoryWrite,
		Text:     "send 103 120",
	})
}

func TestClose_Nil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() = true for zero client, want false")
	}
}

func TestRecorderSink(t *testing.T) {
	// Client satisfies capture.Sink so it can mirror the flight recorder.
	var _ capture.Sink = &Client{}
}
