package notes

import "go.uber.org/zap"

// NotificationKind classifies a user-facing notification.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
)

// Notifier receives user-facing status messages emitted by repository operations.
type Notifier interface {
	Notify(kind NotificationKind, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(kind NotificationKind, message string)

func (f NotifierFunc) Notify(kind NotificationKind, message string) {
	f(kind, message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(NotificationKind, string) {}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger discards notifications.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = noOpLogger
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(kind NotificationKind, message string) {
	if kind == NotificationError {
		n.logger.Warn("notification", zap.String("kind", string(kind)), zap.String("message", message))
		return
	}
	n.logger.Info("notification", zap.String("kind", string(kind)), zap.String("message", message))
}

// MultiNotifier fans every notification out to each non-nil notifier.
func MultiNotifier(notifiers ...Notifier) Notifier {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return multiNotifier(active)
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(kind NotificationKind, message string) {
	for _, notifier := range m {
		notifier.Notify(kind, message)
	}
}
