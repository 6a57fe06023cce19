package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rl1809/coffee-cart/internal/port"
)

func TestMemoryAdapter(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	if _, err := m.Get(ctx, "cart"); !errors.Is(err, port.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got: %v", err)
	}

	value := []byte(`[{"id":1,"amount":1}]`)
	if err := m.Set(ctx, "cart", value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value[0] = 'x'

	got, err := m.Get(ctx, "cart")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `[{"id":1,"amount":1}]` {
		t.Errorf("stored value aliased caller slice: %s", got)
	}

	got[0] = 'y'
	again, _ := m.Get(ctx, "cart")
	if again[0] != '[' {
		t.Error("returned value aliased stored slice")
	}
}
