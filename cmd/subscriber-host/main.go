// Package main contains the entrypoint of the subscriber host, polling
// streams from a remote event store and dispatching the events read
// to the configured handlers.
package main

func main() {
	Execute()
}
