package port

import (
	"context"

	"github.com/rl1809/coffee-cart/internal/core/domain"
)

type Notifier interface {
	// Notify delivers a transient user-facing message; it must not block
	Notify(ctx context.Context, n domain.Notification)
}
