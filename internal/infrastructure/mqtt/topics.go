package mqtt

import "fmt"

// TopicPrefix is the base for all HouseDCC topics.
//
// Topics follow the scheme: housedcc/{service}/{suffix}
const TopicPrefix = "housedcc"

// Topics builds MQTT topic names for a HouseDCC service instance.
//
//	topics := mqtt.Topics{Service: "housedcc"}
//	topics.Status() // "housedcc/housedcc/status"
type Topics struct {
	// Service is the service identifier used as the topic segment.
	Service string
}

// Availability returns the availability topic for this service.
//
// The broker publishes "offline" here via LWT when the service
// disconnects unexpectedly; the service publishes "online" on connect
// and "offline" on graceful shutdown. Messages are retained.
//
// Example: housedcc/housedcc/availability
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/%s/availability", TopicPrefix, t.Service)
}

// Status returns the retained fleet status topic for this service.
//
// Example: housedcc/housedcc/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.Service)
}

// AllAvailability returns a pattern matching every service's
// availability topic.
//
// Pattern: housedcc/+/availability
func (Topics) AllAvailability() string {
	return fmt.Sprintf("%s/+/availability", TopicPrefix)
}

// AllStatus returns a pattern matching every service's status topic.
//
// Pattern: housedcc/+/status
func (Topics) AllStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefix)
}
