// Package mqtt provides MQTT client connectivity for the HouseDCC service.
//
// This package manages:
//   - Connection to the house broker with auto-reconnect
//   - Availability announcement with Last Will and Testament (LWT)
//   - Retained fleet status publishing
//   - Connection health monitoring
//
// # Architecture
//
// HouseDCC publishes its state onto the house MQTT bus so dashboards
// and other House services can observe the railroad without polling the
// HTTP API:
//
//	housedcc/{service}/availability — "online"/"offline", retained, LWT-backed
//	housedcc/{service}/status       — fleet status JSON, retained
//
// The service is publish-only; commands arrive over HTTP.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Service.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishStatus(statusJSON)
package mqtt
