// Package notify delivers travel document status changes to interested
// parties: the log, the status history table, Redis subscribers and Kafka.
package notify

import (
	"context"
	"time"

	"immigration/internal/model"

	"go.uber.org/zap"
)

// StatusChange is published after a travel document changed status. OldStatus
// is empty for newly created documents.
type StatusChange struct {
	DocumentID     uint         `json:"document_id"`
	DocumentNumber string       `json:"document_number"`
	OldStatus      model.Status `json:"old_status"`
	NewStatus      model.Status `json:"new_status"`
	Actor          string       `json:"user,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// Sink receives status changes.
type Sink interface {
	Publish(ctx context.Context, c StatusChange) error
}

// Nop drops every change.
type Nop struct{}

func (Nop) Publish(context.Context, StatusChange) error { return nil }

// LogSink writes each change to the structured log.
type LogSink struct {
	logger *zap.SugaredLogger
}

func NewLogSink(logger *zap.SugaredLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, c StatusChange) error {
	s.logger.Infow("document status changed",
		"document_id", c.DocumentID,
		"document_number", c.DocumentNumber,
		"old_status", string(c.OldStatus),
		"new_status", string(c.NewStatus),
		"user", c.Actor,
		"timestamp", c.Timestamp,
	)
	return nil
}

// Fanout forwards a change to every sink. Sink failures are logged and never
// reach the caller: the status change itself has already been committed.
type Fanout struct {
	sinks  []Sink
	logger *zap.SugaredLogger
}

func NewFanout(logger *zap.SugaredLogger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, c StatusChange) error {
	for _, s := range f.sinks {
		if err := s.Publish(ctx, c); err != nil {
			f.logger.Warnw("status notification failed",
				"sink", sinkName(s),
				"document_id", c.DocumentID,
				"new_status", string(c.NewStatus),
				"error", err,
			)
		}
	}
	return nil
}

func sinkName(s Sink) string {
	switch s.(type) {
	case *LogSink:
		return "log"
	case *DBSink:
		return "db"
	case *RedisSink:
		return "redis"
	case *KafkaSink:
		return "kafka"
	}
	return "custom"
}
