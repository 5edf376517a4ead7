// Package notifications sends desktop notifications about finished
// runs. Notification failures are logged and never fail the run.
package notifications

import (
	"github.com/gen2brain/beeep"

	"github.com/agnosto/redditrip/config"
	"github.com/agnosto/redditrip/logger"
)

type NotificationService struct {
	cfg config.NotificationsConfig
}

func NewNotificationService(cfg config.NotificationsConfig) *NotificationService {
	return &NotificationService{cfg: cfg}
}

// NotifyRunComplete announces the end of a run when completion
// notifications are enabled.
func (s *NotificationService) NotifyRunComplete(message string) {
	if !s.cfg.Enabled || !s.cfg.NotifyOnCompletion {
		return
	}
	if err := beeep.Notify("redditrip", message, ""); err != nil {
		logger.Logger.Warnf("Failed to send notification: %v", err)
	}
}
