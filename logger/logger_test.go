package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/get-eventually/go-eventstore-http/logger"
)

func TestScoped(t *testing.T) {
	assert.Nil(t, logger.Scoped(nil, logger.With("component", "atom")))

	l := logger.NewTest(t)
	scoped := logger.Scoped(logger.Scoped(l, logger.With("component", "atom")), logger.With("stream", "orders"))

	logger.Info(scoped, "read performed", logger.With("status", 200))
	logger.Warn(scoped, "read failed")

	entries := l.Entries("info")
	if assert.Len(t, entries, 1) {
		assert.Equal(t, []logger.Field{
			logger.With("component", "atom"),
			logger.With("stream", "orders"),
			logger.With("status", 200),
		}, entries[0].Fields)
	}

	assert.Len(t, l.Entries("warn"), 1)
	assert.Empty(t, l.Entries("debug"))
}
