package notify

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/port"
)

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) {
	fields := []zap.Field{
		zap.String("id", n.ID),
		zap.String("session_id", n.SessionID),
		zap.String("message", n.Message),
	}
	if n.Level == domain.NotificationError {
		l.logger.Warn("user notification", fields...)
		return
	}
	l.logger.Info("user notification", fields...)
}

// Inbox holds pending notifications per session until the session's
// client collects them with Drain. Each session keeps its newest
// perSession entries and at most sessions inboxes are retained.
type Inbox struct {
	mu         sync.Mutex
	perSession int
	pending    *lru.Cache
}

func NewInbox(sessions, perSession int) (*Inbox, error) {
	if perSession <= 0 {
		return nil, fmt.Errorf("inbox size must be positive, got %d", perSession)
	}

	pending, err := lru.New(sessions)
	if err != nil {
		return nil, fmt.Errorf("create inbox: %w", err)
	}
	return &Inbox{perSession: perSession, pending: pending}, nil
}

// Notify queues n for its session. Notifications without a session have
// no client to go to and are skipped.
func (b *Inbox) Notify(ctx context.Context, n domain.Notification) {
	if n.SessionID == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var queue []domain.Notification
	if v, ok := b.pending.Get(n.SessionID); ok {
		queue = v.([]domain.Notification)
	}
	queue = append(queue, n)
	if len(queue) > b.perSession {
		queue = append([]domain.Notification(nil), queue[len(queue)-b.perSession:]...)
	}
	b.pending.Add(n.SessionID, queue)
}

// Drain returns and clears the pending notifications of sessionID,
// oldest first.
func (b *Inbox) Drain(sessionID string) []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.pending.Peek(sessionID)
	if !ok {
		return nil
	}
	b.pending.Remove(sessionID)
	return v.([]domain.Notification)
}

// Fanout forwards each notification to every notifier in order.
type Fanout []port.Notifier

func (f Fanout) Notify(ctx context.Context, n domain.Notification) {
	for _, notifier := range f {
		notifier.Notify(ctx, n)
	}
}
