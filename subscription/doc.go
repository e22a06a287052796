// Package subscription contains the engine that polls Event Streams from
// a remote store and dispatches the events read to in-process handlers.
//
// Every subscription is identified by a Key, the pair of stream name and
// subscriber id, and runs on its own recurring schedule managed by
// the Scheduler. On each tick, the Engine drains all the new events
// available in the stream, starting from the last checkpoint recorded for
// the subscription, and dispatches them in order to the applicable handlers.
//
// Events are delivered at-least-once: the checkpoint is advanced only after
// the handlers have been invoked for the corresponding event.
package subscription
