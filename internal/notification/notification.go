package notification

import (
	"context"
	"log/slog"
)

const (
	// KindAccountOpened is sent when a first deposit creates an owner's ledger account.
	KindAccountOpened = "account_opened"
	// KindDeposit indicates funds moved into a ledger account.
	KindDeposit = "deposit"
	// KindWithdraw indicates funds moved back to the owner.
	KindWithdraw = "withdraw"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Amount      uint64
	Balance     uint64
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.Uint64("amount", message.Amount),
		slog.Uint64("balance", message.Balance),
		slog.String("body", message.Body),
	)
	return nil
}
