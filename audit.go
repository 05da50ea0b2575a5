package fitAuth

import (
	"io"

	internalaudit "github.com/fitgoal/fitAuth/internal/audit"
	"github.com/fitgoal/fitAuth/internal/logging"
)

// AuditEvent is one security-relevant workflow outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's background dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type LoggerSink = internalaudit.LoggerSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink writes audit events through log.
func NewLoggerSink(log logging.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(log)
}
