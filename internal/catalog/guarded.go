package catalog

import (
	"context"
	"errors"

	"github.com/fjod/medmarket/internal/domain"
	"github.com/fjod/medmarket/pkg/circuitbreaker"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type ProductReader interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// Guarded routes catalog reads through a circuit breaker. A missing product
// is an answer, not a failure, and does not count towards tripping.
type Guarded struct {
	next    ProductReader
	product *gobreaker.CircuitBreaker[*domain.Product]
	list    *gobreaker.CircuitBreaker[[]*domain.Product]
}

func NewGuarded(next ProductReader, s circuitbreaker.Settings, log zerolog.Logger) *Guarded {
	s.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrProductNotFound) || errors.Is(err, context.Canceled)
	}
	listSettings := s
	listSettings.Name = s.Name + "-list"

	return &Guarded{
		next:    next,
		product: circuitbreaker.New[*domain.Product](s, log),
		list:    circuitbreaker.New[[]*domain.Product](listSettings, log),
	}
}

func (g *Guarded) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return g.product.Execute(func() (*domain.Product, error) {
		return g.next.GetProduct(ctx, id)
	})
}

func (g *Guarded) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	return g.list.Execute(func() ([]*domain.Product, error) {
		return g.next.GetAllProducts(ctx)
	})
}
