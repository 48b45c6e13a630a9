package notify

import (
	"context"
	"log/slog"
)

// Sink delivers a notification to one user. Delivery is fire-and-forget with
// at most one attempt; callers log failures and move on, they never roll back
// state because a notification did not land.
type Sink interface {
	Notify(ctx context.Context, userID int, title, body string, payload map[string]interface{}) error
}

// slogSink writes notifications to the application log. It doubles as the
// fallback when no push channel is configured.
type slogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) Sink {
	return &slogSink{logger: logger}
}

func (s *slogSink) Notify(ctx context.Context, userID int, title, body string, payload map[string]interface{}) error {
	s.logger.InfoContext(ctx, "notification",
		slog.Int("user_id", userID),
		slog.String("title", title),
		slog.String("body", body),
		slog.Any("payload", payload),
	)
	return nil
}

// multiSink fans one notification out to several channels. Errors are
// collected per channel but only the first is returned; the caller logs it.
type multiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) Sink {
	return &multiSink{sinks: sinks}
}

func (m *multiSink) Notify(ctx context.Context, userID int, title, body string, payload map[string]interface{}) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, userID, title, body, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
