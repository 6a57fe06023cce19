package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/port"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrUpdateFailed         = errors.New("product not in cart, update failed")
	ErrRemoveFailed         = errors.New("product not in cart, remove failed")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

const (
	DefaultCartKey = "@CoffeeDelivery:cart"

	MsgProductAdded = "Café adicionado ao carrinho"
	MsgUpdateFailed = "Falha na atualização da quantidade do produto"
	MsgRemoveFailed = "Erro na remoção do produto"
)

// Deps are the collaborators shared by every cart store.
type Deps struct {
	Store    port.KeyValueStore
	Catalog  port.CatalogRepository
	Notifier port.Notifier
	Logger   *zap.Logger
}

type subscriber struct {
	id int
	fn func(domain.Cart)
}

// CartStore is the single source of truth for one cart. Line items are
// committed to the key-value store after every change; payment and
// address live in memory only.
type CartStore struct {
	key       string
	sessionID string
	store     port.KeyValueStore
	catalog   port.CatalogRepository
	notifier  port.Notifier
	logger    *zap.Logger

	mu          sync.Mutex
	items       []domain.LineItem
	payment     domain.PaymentMethod
	address     domain.Address
	subscribers []subscriber
	nextSubID   int
}

// NewCartStore builds a store for key and hydrates it from the key-value
// store. Hydration never fails: a missing, unreadable or malformed value
// yields an empty cart.
func NewCartStore(ctx context.Context, key string, deps Deps) *CartStore {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &CartStore{
		key:      key,
		store:    deps.Store,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		logger:   logger.With(zap.String("cart_key", key)),
		items:    []domain.LineItem{},
	}
	s.hydrate(ctx)

	return s
}

func (s *CartStore) Key() string {
	return s.key
}

func (s *CartStore) hydrate(ctx context.Context) {
	if s.store == nil {
		return
	}

	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, port.ErrKeyNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("cart hydration failed, starting empty", zap.Error(err))
		return
	}

	items, err := decodeItems(raw)
	if err != nil {
		s.logger.Warn("discarding malformed persisted cart", zap.Error(err))
		return
	}

	s.items = items
	s.logger.Debug("cart hydrated", zap.Int("lines", len(items)))
}

func decodeItems(raw []byte) ([]domain.LineItem, error) {
	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}

	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("duplicate line for product %d", item.ID)
		}
		if item.Amount < 0 {
			return nil, fmt.Errorf("negative amount for product %d", item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	if items == nil {
		items = []domain.LineItem{}
	}
	return items, nil
}

// AddProduct merges amount into an existing line or appends a new line
// looked up from the catalog.
func (s *CartStore) AddProduct(ctx context.Context, productID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("add product %d: %w", productID, ErrInvalidAmount)
	}

	err := s.apply(ctx, true, func() error {
		if i := s.indexLocked(productID); i >= 0 {
			s.items[i].Amount += amount
			return nil
		}

		product, err := s.lookup(ctx, productID)
		if err != nil {
			return err
		}
		s.items = append(s.items, domain.LineItem{Product: *product, Amount: amount})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("product added", zap.Int("product_id", productID), zap.Int("amount", amount))
	s.notify(ctx, domain.NotificationSuccess, MsgProductAdded)
	return nil
}

func (s *CartStore) lookup(ctx context.Context, productID int) (*domain.Product, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if errors.Is(err, port.ErrProductNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %d: %w", productID, err)
	}
	return product, nil
}

// UpdateProduct sets the amount of an existing line.
func (s *CartStore) UpdateProduct(ctx context.Context, productID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("update product %d: %w", productID, ErrInvalidAmount)
	}

	err := s.apply(ctx, true, func() error {
		i := s.indexLocked(productID)
		if i < 0 {
			return fmt.Errorf("update product %d: %w", productID, ErrUpdateFailed)
		}
		// TODO: zero keeps a zero-quantity line instead of removing it; needs a product-owner decision.
		s.items[i].Amount = amount
		return nil
	})
	if errors.Is(err, ErrUpdateFailed) {
		s.notify(ctx, domain.NotificationError, MsgUpdateFailed)
	}
	return err
}

func (s *CartStore) RemoveProduct(ctx context.Context, productID int) error {
	err := s.apply(ctx, true, func() error {
		i := s.indexLocked(productID)
		if i < 0 {
			return fmt.Errorf("remove product %d: %w", productID, ErrRemoveFailed)
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return nil
	})
	if errors.Is(err, ErrRemoveFailed) {
		s.notify(ctx, domain.NotificationError, MsgRemoveFailed)
	}
	return err
}

// SelectPayment overwrites the payment method. It is not persisted.
func (s *CartStore) SelectPayment(ctx context.Context, method domain.PaymentMethod) error {
	if !method.Valid() {
		return fmt.Errorf("select payment %q: %w", method, ErrInvalidPaymentMethod)
	}

	return s.apply(ctx, false, func() error {
		s.payment = method
		return nil
	})
}

// AddAddress replaces the delivery address wholesale. It is not persisted.
func (s *CartStore) AddAddress(ctx context.Context, addr domain.Address) error {
	return s.apply(ctx, false, func() error {
		s.address = addr
		return nil
	})
}

// ResetCart empties the line items. Payment and address are kept.
func (s *CartStore) ResetCart(ctx context.Context) error {
	return s.apply(ctx, true, func() error {
		s.items = []domain.LineItem{}
		return nil
	})
}

func (s *CartStore) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *CartStore) Items() []domain.LineItem {
	return s.Snapshot().Items
}

func (s *CartStore) Payment() domain.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payment
}

func (s *CartStore) Address() domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Subscribe registers fn to receive a snapshot after every committed
// mutation. Calls happen synchronously on the mutating goroutine, after
// the store lock is released.
func (s *CartStore) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *CartStore) apply(ctx context.Context, persist bool, mutate func() error) error {
	s.mu.Lock()
	if err := mutate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if persist {
		s.commitLocked(ctx)
	}
	snap := s.snapshotLocked()
	subs := append([]subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(domain.Cart{Items: domain.CloneItems(snap.Items), Payment: snap.Payment, Address: snap.Address})
	}
	return nil
}

// commitLocked writes the line items. Failures are logged and the store
// keeps working from memory.
func (s *CartStore) commitLocked(ctx context.Context) {
	if s.store == nil {
		return
	}

	raw, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Error("encode cart", zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, s.key, raw); err != nil {
		s.logger.Error("commit cart", zap.Error(err))
	}
}

func (s *CartStore) snapshotLocked() domain.Cart {
	return domain.Cart{
		Items:   domain.CloneItems(s.items),
		Payment: s.payment,
		Address: s.address,
	}
}

func (s *CartStore) indexLocked(productID int) int {
	for i, item := range s.items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

func (s *CartStore) notify(ctx context.Context, level domain.NotificationLevel, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.NewString(),
		SessionID: s.sessionID,
		Level:     level,
		Message:   msg,
		CreatedAt: time.Now(),
	})
}
