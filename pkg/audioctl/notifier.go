package audioctl

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier provides generic notification sending
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier sends desktop notifications
type ToastNotifier struct {
	logger *zap.SugaredLogger
}

// NewToastNotifier creates a ToastNotifier instance
func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	tn := &ToastNotifier{logger: logger.Named("notifier")}
	tn.logger.Debug("Created toast notifier instance")

	return tn, nil
}

// Notify sends a desktop notification with the given title and message
func (tn *ToastNotifier) Notify(title string, message string) {
	tn.logger.Debugw("Sending toast notification", "title", title, "message", message)

	if err := beeep.Notify(title, message, ""); err != nil {
		tn.logger.Warnw("Failed to send toast notification", "error", err)
	}
}
