package session

import (
	"context"
	"log/slog"
	"time"
)

// NoticeKind identifies a user-facing notice.
type NoticeKind string

const (
	NoticeAccountLocked  NoticeKind = "account_locked"
	NoticeSessionExpired NoticeKind = "session_expired"
	NoticeRateLimited    NoticeKind = "rate_limited"
)

// Notice is a message the UI should surface outside any form, typically as
// a toast.
type Notice struct {
	Kind       NoticeKind
	Message    string
	RetryAfter time.Duration
}

// Notifier receives notices. Implementations must not call back into the
// Manager synchronously.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// LogNotifier writes notices to a logger. It is the default when no
// Notifier is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notice Notice) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"kind", notice.Kind, "message", notice.Message}
	if notice.RetryAfter > 0 {
		attrs = append(attrs, "retry_after", notice.RetryAfter)
	}
	logger.WarnContext(ctx, "session notice", attrs...)
}
