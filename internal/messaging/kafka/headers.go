package kafka

// Header pesan yang ditulis relay outbox dan dibaca consumer.
const (
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
	HeaderRequestID     = "request_id"
	HeaderOutboxID      = "outbox_id"
)
