package treasury

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes funding account balances.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers treasury routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{id}", h.getAccount)
}

type accountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Balance        string `json:"balance"`
	OverdraftLimit string `json:"overdraft_limit"`
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	acc, err := h.store.Get(r.Context(), accountID)
	if err != nil {
		if err == ErrNotFound {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get account", slog.Any("error", err), slog.Int64("id", accountID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, accountResponse{
		ID:             acc.ID,
		Name:           acc.Name,
		Balance:        acc.Balance.String(),
		OverdraftLimit: acc.OverdraftLimit.String(),
	})
}
