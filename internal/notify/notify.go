// Package notify delivers alert messages to the vehicle owner.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// AlertMessage is the text sent when unsafe cabin conditions are detected.
const AlertMessage = "Warning: Unsafe conditions detected in your vehicle while a living entity is in the car. Please return immediately!"

// Notifier sends a text message.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// LogNotifier logs messages instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier for dry runs.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message.
func (n *LogNotifier) Send(_ context.Context, message string) error {
	n.logger.Warn("notification (dry run)", zap.String("message", message))
	return nil
}
