package notify

import "github.com/sirupsen/logrus"

// LogSink writes events to the application log. Used in development when no
// webhook endpoint is configured.
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a new LogSink
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs one event
func (s *LogSink) Publish(event Event) error {
	s.logger.WithFields(logrus.Fields{
		"type":     event.Type,
		"title":    event.Title,
		"priority": event.Priority,
		"user_id":  event.UserID,
	}).Info("Notification event (log sink)")
	return nil
}
