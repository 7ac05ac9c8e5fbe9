package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/medmarket/internal/catalog"
	"github.com/fjod/medmarket/internal/format"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type ProductHandler struct {
	catalog catalog.ProductReader
	format  *format.Formatter
	timeout time.Duration
	log     zerolog.Logger
}

func NewProductHandler(c catalog.ProductReader, f *format.Formatter, timeout time.Duration, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		format:  f,
		timeout: timeout,
		log:     log,
	}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	cards := make([]ProductCardView, 0, len(products))
	for _, p := range products {
		cards = append(cards, newProductCardView(p, h.format))
	}
	respondJSON(w, http.StatusOK, cards)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, newProductCardView(p, h.format))
}
