package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, domainID int64, accountID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.Int64("domain_id", domainID),
		slog.String("account_id", accountID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogUserCreate(ctx context.Context, domainID int64, accountID, userID, status, details string) {
	al.LogAction(ctx, domainID, accountID, "create", "user", userID, status, details)
}

func (al *Logger) LogUserDelete(ctx context.Context, domainID int64, accountID, userID, status, details string) {
	al.LogAction(ctx, domainID, accountID, "delete", "user", userID, status, details)
}

func (al *Logger) LogUserRename(ctx context.Context, domainID int64, accountID, userID, status, details string) {
	al.LogAction(ctx, domainID, accountID, "rename", "user", userID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, domainID int64, accountID, reason string) {
	al.LogAction(ctx, domainID, accountID, "access_denied", "api", "", "denied", reason)
}
