package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/coffee-cart/internal/core/domain"
)

func newTestInbox(t *testing.T, sessions, perSession int) *Inbox {
	t.Helper()

	inbox, err := NewInbox(sessions, perSession)
	if err != nil {
		t.Fatalf("new inbox: %v", err)
	}
	return inbox
}

func messages(notes []domain.Notification) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Message
	}
	return out
}

func TestInbox_KeepsNewestPerSession(t *testing.T) {
	inbox := newTestInbox(t, 4, 2)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		inbox.Notify(ctx, domain.Notification{SessionID: "s1", Message: msg})
	}
	inbox.Notify(ctx, domain.Notification{SessionID: "s2", Message: "other"})

	got := messages(inbox.Drain("s1"))
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("expected [b c], got %v", got)
	}
	if again := inbox.Drain("s1"); len(again) != 0 {
		t.Errorf("expected empty inbox after drain, got %v", messages(again))
	}
	if got := messages(inbox.Drain("s2")); len(got) != 1 || got[0] != "other" {
		t.Errorf("expected [other], got %v", got)
	}
}

func TestInbox_SkipsNotificationsWithoutSession(t *testing.T) {
	inbox := newTestInbox(t, 4, 2)

	inbox.Notify(context.Background(), domain.Notification{Message: "orphan"})

	if got := inbox.Drain(""); len(got) != 0 {
		t.Errorf("expected nothing queued, got %v", messages(got))
	}
}

func TestInbox_BoundedSessions(t *testing.T) {
	inbox := newTestInbox(t, 2, 4)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		inbox.Notify(ctx, domain.Notification{SessionID: id, Message: id})
	}

	if got := inbox.Drain("s1"); len(got) != 0 {
		t.Errorf("expected oldest session dropped, got %v", messages(got))
	}
	if got := messages(inbox.Drain("s3")); len(got) != 1 || got[0] != "s3" {
		t.Errorf("expected [s3], got %v", got)
	}
}

func TestNewInbox_InvalidSize(t *testing.T) {
	if _, err := NewInbox(4, 0); err == nil {
		t.Error("expected error for zero per-session size")
	}
	if _, err := NewInbox(0, 4); err == nil {
		t.Error("expected error for zero session count")
	}
}

func TestLogNotifier_LevelMapping(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))
	ctx := context.Background()

	n.Notify(ctx, domain.Notification{Level: domain.NotificationSuccess, Message: "Café adicionado ao carrinho"})
	n.Notify(ctx, domain.Notification{Level: domain.NotificationError, Message: "Erro na remoção do produto"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel {
		t.Errorf("expected info for success, got %s", entries[0].Level)
	}
	if entries[1].Level != zap.WarnLevel {
		t.Errorf("expected warn for error, got %s", entries[1].Level)
	}
	if entries[1].ContextMap()["message"] != "Erro na remoção do produto" {
		t.Errorf("unexpected message field %v", entries[1].ContextMap()["message"])
	}
}

func TestFanout(t *testing.T) {
	a := newTestInbox(t, 1, 1)
	b := newTestInbox(t, 1, 1)

	Fanout{a, b}.Notify(context.Background(), domain.Notification{SessionID: "s1", Message: "hi"})

	if got := messages(a.Drain("s1")); len(got) != 1 || got[0] != "hi" {
		t.Errorf("first notifier got %v", got)
	}
	if got := messages(b.Drain("s1")); len(got) != 1 || got[0] != "hi" {
		t.Errorf("second notifier got %v", got)
	}
}
