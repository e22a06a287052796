// Package checkpoint contains the Checkpointer contract used by the
// subscription Engine to persist how far every subscription has processed
// its stream, so that processing resumes from there after a restart.
//
// Checkpoints are keyed by stream name and subscriber id: an empty
// subscriber id denotes the default subscriber of the stream.
// The in-memory implementations in this package are suitable for tests
// and for hosts that always replay their streams from the beginning.
package checkpoint
