// Package eventstorehttp contains the building blocks of a subscriber host:
// a process that polls event streams from a remote event store over HTTP,
// and dispatches every event read to the in-process handlers subscribed to it.
//
// Start from the `subscription` package, and its Engine type, to schedule
// the polling of streams; `handler` contains the handlers model and its
// type-hierarchy aware resolution. Checkpoints can be stored in memory,
// or using one of the `sqlite`, `postgres` or `firestore` packages.
//
// The `cmd/subscriber-host` command wires all of them together from
// environment variables and a YAML configuration file.
package eventstorehttp
