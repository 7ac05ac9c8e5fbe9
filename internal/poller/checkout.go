package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/medmarket/internal/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var ErrInvalidPayload = errors.New("invalid payload")

type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

// NewCheckoutPoller empties a user's cart once their checkout completes.
func NewCheckoutPoller(carts CartClearer, log zerolog.Logger, groupID string, brokers ...string) *Poller {
	return newPoller("checkout", newReader("checkout", CheckoutTopic, groupID, brokers), checkoutHandler(carts), log)
}

func checkoutHandler(carts CartClearer) HandlerFunc {
	return func(ctx context.Context, m kafka.Message) error {
		var payload struct {
			CheckoutID string          `json:"checkout_id"`
			UserID     json.RawMessage `json:"user_id"`
		}
		if err := json.Unmarshal(m.Value, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}

		userID := strings.Trim(string(payload.UserID), `"`)
		if userID == "" || userID == "null" {
			return fmt.Errorf("%w: missing user_id", ErrInvalidPayload)
		}

		err := carts.ClearCart(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
			return fmt.Errorf("clear cart for checkout %s: %w", payload.CheckoutID, err)
		}
		return nil
	}
}
