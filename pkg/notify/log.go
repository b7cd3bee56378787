package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the log. It is the default backend
// when no messaging system is configured.
type LogNotifier struct {
	logger *slog.Logger
	routes Routes
}

func NewLogNotifier(logger *slog.Logger, routes Routes) *LogNotifier {
	return &LogNotifier{logger: logger, routes: routes}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Channel == "" {
		return ErrUnknownChannel
	}

	n.logger.InfoContext(ctx, "Notify",
		"channel", n.routes.Resolve(msg.Channel),
		"message", msg.Text,
		"requestId", msg.RequestID,
		"key", msg.Key,
	)

	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
