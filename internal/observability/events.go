// Package observability carries the service's Prometheus metrics and the
// websocket lifecycle events published to the AMQP exchange.
package observability

// EventEnvelope wraps a websocket lifecycle event for publication.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders assembles correlation headers for event publication,
// omitting empty values.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
