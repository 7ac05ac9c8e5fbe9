package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/medmarket/internal/cache"
	"github.com/fjod/medmarket/internal/cart"
	"github.com/fjod/medmarket/internal/domain"
	"github.com/fjod/medmarket/internal/events"
	"github.com/fjod/medmarket/internal/repository"
	"github.com/fjod/medmarket/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var cartTracer = otel.Tracer("medmarket.internal.service.cart")

type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type EventPublisher interface {
	PublishCartChanged(ctx context.Context, e events.CartChanged) error
}

type CartService struct {
	repo      repository.CartRepository
	cache     cache.CartCache
	catalog   ProductCatalog
	publisher EventPublisher
	log       zerolog.Logger
	sfg       singleflight.Group // Prevents cache stampede
	now       func() time.Time
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	catalog ProductCatalog,
	publisher EventPublisher,
	log zerolog.Logger,
) *CartService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CartService{
		repo:      repo,
		cache:     cache,
		catalog:   catalog,
		publisher: publisher,
		log:       log.With().Str("component", "cart_service").Logger(),
		now:       time.Now,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		log := logger.WithTrace(ctx, s.log)

		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("user_id", userID).Msg("cache get failed")
		}

		c, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			return s.emptyCart(userID), nil
		}
		if errGet != nil {
			return nil, errGet // err from repo is not cache miss, return it
		}

		go func() {
			errSet := s.cache.Set(context.Background(), userID, c)
			switch {
			case errors.Is(errSet, cache.ErrStaleCart):
				s.log.Debug().Str("user_id", userID).Msg("stale cart not cached")
			case errSet != nil:
				s.log.Warn().Err(errSet).Str("user_id", userID).Msg("cache set failed")
			}
		}()

		return c, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts quantity units of a catalog product into the cart, replacing
// the quantity of an existing line. Price, name and stock come from the
// catalog. An existing line keeps its selection, a new one starts selected.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(a *cart.Aggregator) error {
		item := domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  quantity,
			UnitPrice: product.Price,
			Stock:     product.Stock,
			Selected:  true,
			AddedAt:   s.now(),
		}
		if existing, ok := a.Item(product.ID); ok {
			item.Selected = existing.Selected
		}
		a.AddOrUpdateItem(item)
		return nil
	})
}

func (s *CartService) Increment(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(a *cart.Aggregator) error {
		_, err := a.Increment(productID)
		return err
	})
}

func (s *CartService) Decrement(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(a *cart.Aggregator) error {
		_, err := a.Decrement(productID)
		return err
	})
}

func (s *CartService) SetSelected(ctx context.Context, userID string, productID int64, selected bool) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(a *cart.Aggregator) error {
		return a.SetSelected(productID, selected)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(a *cart.Aggregator) error {
		return a.RemoveItem(productID)
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil {
		if !errors.Is(errDelete, repository.ErrCartNotFound) {
			log := logger.WithTrace(ctx, s.log)
			log.Error().Err(errDelete).Str("user_id", userID).Msg("repo delete cart failed")
		}
		return errDelete
	}

	s.invalidateCache(userID, s.now())
	s.publish(ctx, userID, cart.Change{Kind: cart.CartCleared, Total: decimal.Zero, Empty: true})
	return nil
}

// RefreshStock applies a stock level reported by inventory to every cart
// holding the product. Each cart goes through the aggregator, so quantities
// are re-clamped and a stock_changed event is published per touched cart.
func (s *CartService) RefreshStock(ctx context.Context, productID int64, stock int) error {
	ctx, span := cartTracer.Start(ctx, "cart.refresh_stock")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("medmarket.product_id", productID),
		attribute.Int("medmarket.stock", stock),
	)
	log := logger.WithTrace(ctx, s.log)

	userIDs, err := s.repo.UsersWithProduct(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find carts failed")
		log.Error().Err(err).Int64("product_id", productID).Msg("repo find carts with product failed")
		return err
	}

	var errs []error
	for _, userID := range userIDs {
		_, errMutate := s.mutate(ctx, userID, func(a *cart.Aggregator) error {
			a.UpdateStock(productID, stock)
			return nil
		})
		if errMutate != nil {
			errs = append(errs, fmt.Errorf("refresh cart %s: %w", userID, errMutate))
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh stock failed")
		return err
	}

	log.Info().
		Int64("product_id", productID).
		Int("stock", stock).
		Int("carts", len(userIDs)).
		Msg("stock refreshed")
	return nil
}

// mutate loads the stored cart, applies fn through an aggregator and saves
// the result when fn changed anything.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(a *cart.Aggregator) error) (*domain.Cart, error) {
	ctx, span := cartTracer.Start(ctx, "cart.mutate")
	defer span.End()
	span.SetAttributes(attribute.String("medmarket.user_id", userID))
	log := logger.WithTrace(ctx, s.log)

	stored, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		stored = s.emptyCart(userID)
	} else if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("repo get cart failed")
		return nil, err
	}

	a := cart.New(stored.Items)
	var changes []cart.Change
	a.Subscribe(func(c cart.Change) { changes = append(changes, c) })

	if err := fn(a); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("medmarket.changes", len(changes)))
	if len(changes) == 0 {
		return stored, nil
	}

	stored.Items = a.Items()
	stored.Touch(s.now())
	if err := s.repo.UpsertCart(ctx, stored); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert cart failed")
		log.Error().Err(err).Str("user_id", userID).Msg("repo upsert cart failed")
		return nil, err
	}

	s.invalidateCache(userID, stored.UpdatedAt)
	for _, c := range changes {
		s.publish(ctx, userID, c)
	}
	return stored, nil
}

func (s *CartService) publish(ctx context.Context, userID string, c cart.Change) {
	e := events.CartChanged{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Kind:       string(c.Kind),
		ProductID:  c.ProductID,
		Total:      c.Total.StringFixed(2),
		ItemCount:  c.ItemCount,
		Empty:      c.Empty,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishCartChanged(ctx, e); err != nil {
		log := logger.WithTrace(ctx, s.log)
		log.Warn().Err(err).Str("user_id", userID).Msg("publish cart changed failed")
	}
}

func (s *CartService) emptyCart(userID string) *domain.Cart {
	now := s.now()
	return &domain.Cart{
		UserID:    userID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *CartService) invalidateCache(userID string, version time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Invalidate(ctx, userID, version)
	if errInvalidate != nil {
		s.log.Warn().Err(errInvalidate).Str("user_id", userID).Msg("cache invalidate failed")
	}
}
