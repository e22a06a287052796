package opentelemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys used by the instrumentation.
const (
	StreamKey       attribute.Key = "subscription.stream"
	SubscriberIDKey attribute.Key = "subscription.subscriber_id"
	EventTypeKey    attribute.Key = "event.type"
	FromKey         attribute.Key = "event_stream.read_from"
	MaxCountKey     attribute.Key = "event_stream.read_max_count"
	EventNumberKey  attribute.Key = "event_stream.event_number"
	ReadStatusKey   attribute.Key = "event_stream.read_status"
	ErrorKey        attribute.Key = "error"
)

// Names of the metrics exported.
const (
	EventsSeenMetric      = "subscriber.events.seen"
	EventsProcessedMetric = "subscriber.events.processed"
	HandlerErrorsMetric   = "subscriber.handler.errors"
	EventLagMetric        = "subscriber.event.lag.milliseconds"
	PollIntervalMetric    = "subscriber.poll.interval.seconds"
	ReadDurationMetric    = "subscriber.reader.duration.milliseconds"
)
