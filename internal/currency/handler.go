package currency

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the rate registry over HTTP.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// MountRoutes registers currency routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates/{code}", h.getRate)
	r.Put("/rates/{code}", h.setRate)
}

type rateResponse struct {
	Code string `json:"code"`
	Rate string `json:"rate"`
}

type setRateRequest struct {
	Rate string `json:"rate"`
}

func (h *Handler) getRate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rate, err := h.registry.Rate(r.Context(), code)
	if err != nil {
		if err == ErrUnknownCurrency {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get rate", slog.Any("error", err), slog.String("code", code))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, rateResponse{Code: code, Rate: rate.String()})
}

func (h *Handler) setRate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req setRateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid body")
		return
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "rate must be a decimal number")
		return
	}
	if err := h.registry.SetRate(r.Context(), code, rate); err != nil {
		h.logger.Error("set rate", slog.Any("error", err), slog.String("code", code))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, rateResponse{Code: code, Rate: rate.String()})
}
