package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/medmarket/internal/cart"
	"github.com/fjod/medmarket/internal/domain"
	"github.com/fjod/medmarket/internal/format"
	"github.com/fjod/medmarket/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartService is the subset of the cart service the handlers call.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error)
	Increment(ctx context.Context, userID string, productID int64) (*domain.Cart, error)
	Decrement(ctx context.Context, userID string, productID int64) (*domain.Cart, error)
	SetSelected(ctx context.Context, userID string, productID int64, selected bool) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	service CartService
	format  *format.Formatter
	timeout time.Duration
	log     zerolog.Logger
}

func NewCartHandler(service CartService, f *format.Formatter, timeout time.Duration, log zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		format:  f,
		timeout: timeout,
		log:     log,
	}
}

// SoftQuantity accepts a JSON number or string. Anything unparsable
// decodes to 0 instead of failing the request.
type SoftQuantity int

func (q *SoftQuantity) UnmarshalJSON(b []byte) error {
	*q = SoftQuantity(cart.ParseQuantity(strings.Trim(string(b), `"`)))
	return nil
}

type AddItemRequestDTO struct {
	ProductID int64        `json:"product_id"`
	Quantity  SoftQuantity `json:"quantity"`
}

type SelectionRequestDTO struct {
	Selected bool `json:"selected"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.service.GetCart(ctx, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartView(c, h.format))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	c, err := h.service.AddItem(ctx, userID, req.ProductID, int(req.Quantity))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, newCartView(c, h.format))
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.withProduct(w, r, h.service.Increment)
}

func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.withProduct(w, r, h.service.Decrement)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.withProduct(w, r, h.service.RemoveItem)
}

func (h *CartHandler) SetSelected(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.withProduct(w, r, func(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
		return h.service.SetSelected(ctx, userID, productID, req.Selected)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	err := h.service.ClearCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		h.handleServiceError(w, err)
		return
	}

	now := time.Now()
	respondJSON(w, http.StatusOK, newCartView(&domain.Cart{UserID: userID, UpdatedAt: now}, h.format))
}

func (h *CartHandler) withProduct(
	w http.ResponseWriter,
	r *http.Request,
	call func(ctx context.Context, userID string, productID int64) (*domain.Cart, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	c, err := call(ctx, userID, productID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartView(c, h.format))
}

func (h *CartHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", false
	}
	return userID, true
}

func (h *CartHandler) handleServiceError(w http.ResponseWriter, err error) {
	handleServiceError(w, h.log, err)
}
