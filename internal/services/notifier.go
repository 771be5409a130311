package services

import (
	"context"
	"log/slog"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// Installation lifecycle actions
const (
	InstallationActionUpdated = "updated"
	InstallationActionDeleted = "deleted"
)

// InstallationNotifier tells an integration that one of its installations changed
type InstallationNotifier interface {
	Notify(ctx context.Context, install *models.SentryAppInstallation, user *models.User, action string) error
}

// LogNotifier records notifications as log lines; webhook delivery is handled elsewhere
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier writing to logger, or to the default logger when nil
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the installation change
func (n *LogNotifier) Notify(ctx context.Context, install *models.SentryAppInstallation, user *models.User, action string) error {
	logger := n.logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"installation", install.UUID,
		"sentry_app", install.AppSlug,
		"organization_id", install.OrganizationID,
		"action", action,
	}
	if user != nil {
		attrs = append(attrs, "user_id", user.ID)
	}
	logger.InfoContext(ctx, "installation webhook", attrs...)
	return nil
}
