package wallet

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes supplier credit balances and statements.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers wallet routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers/{id}/balance", h.getBalance)
	r.Get("/suppliers/{id}/movements", h.listMovements)
}

type balanceResponse struct {
	SupplierID int64  `json:"supplier_id"`
	Balance    string `json:"balance"`
}

type movementResponse struct {
	ID     int64     `json:"id"`
	Amount string    `json:"amount"`
	Memo   string    `json:"memo"`
	At     time.Time `json:"at"`
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	balance, err := h.store.Balance(r.Context(), supplierID)
	if err != nil {
		if err == ErrValidation {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("wallet balance", slog.Any("error", err), slog.Int64("supplier_id", supplierID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{SupplierID: supplierID, Balance: balance.String()})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	movements, err := h.store.Movements(r.Context(), supplierID, limit, offset)
	if err != nil {
		h.logger.Error("wallet movements", slog.Any("error", err), slog.Int64("supplier_id", supplierID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementResponse{ID: m.ID, Amount: m.Amount.String(), Memo: m.Memo, At: m.At.Time})
	}
	httpx.JSON(w, http.StatusOK, out)
}
