package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/medmarket/internal/cart"
	"github.com/fjod/medmarket/internal/catalog"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type StockStore interface {
	SetStock(ctx context.Context, productID int64, stock int) error
}

type StockRefresher interface {
	RefreshStock(ctx context.Context, productID int64, stock int) error
}

// NewStockPoller applies inventory stock updates to the catalog and to every
// cart line holding the product.
func NewStockPoller(store StockStore, carts StockRefresher, log zerolog.Logger, groupID string, brokers ...string) *Poller {
	return newPoller("stock", newReader("stock", StockTopic, groupID, brokers), stockHandler(store, carts, log), log)
}

func stockHandler(store StockStore, carts StockRefresher, log zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, m kafka.Message) error {
		var payload struct {
			ProductID json.RawMessage `json:"product_id"`
			Stock     json.RawMessage `json:"stock"`
		}
		if err := json.Unmarshal(m.Value, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}

		productID := int64(cart.ParseQuantity(unquote(payload.ProductID)))
		if productID <= 0 {
			return fmt.Errorf("%w: product_id %s", ErrInvalidPayload, payload.ProductID)
		}
		stock := cart.ParseQuantity(unquote(payload.Stock))

		if err := store.SetStock(ctx, productID, stock); err != nil {
			if !errors.Is(err, catalog.ErrProductNotFound) {
				return fmt.Errorf("set catalog stock for product %d: %w", productID, err)
			}
			log.Warn().Int64("product_id", productID).Msg("stock update for unknown product")
		}

		if err := carts.RefreshStock(ctx, productID, stock); err != nil {
			return fmt.Errorf("refresh cart stock for product %d: %w", productID, err)
		}
		return nil
	}
}

func unquote(raw json.RawMessage) string {
	return strings.Trim(string(raw), `"`)
}
