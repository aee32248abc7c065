package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/history", h.getHistory)
	r.Put("/orders/{id}/lines", h.replaceLines)
	r.Put("/orders/{id}/exchange-rate", h.updateExchangeRate)
	r.Delete("/orders/{id}", h.deleteOrder)

	r.Post("/orders/{id}/confirm-payment", h.confirmPayment)
	r.Post("/orders/{id}/dispatch", h.dispatch)
	r.Post("/orders/{id}/warehouse-received", h.warehouseReceived)
	r.Post("/orders/{id}/ship", h.ship)
	r.Post("/orders/{id}/arrive", h.arrive)
	r.Post("/orders/{id}/transit-hub", h.transitHub)
	r.Post("/orders/{id}/receive", h.receive)
	r.Post("/orders/{id}/complete", h.complete)
	r.Post("/orders/{id}/mark-lost", h.markLost)
}

type lineRequest struct {
	ProductID         int64  `json:"product_id" validate:"required"`
	SupplierUnitPrice string `json:"supplier_unit_price" validate:"required"`
	OrderedQty        int64  `json:"ordered_qty" validate:"required,gt=0"`
	UnitWeightGrams   string `json:"unit_weight_g"`
	ExtraWeightGrams  string `json:"extra_weight_g"`
}

type createOrderRequest struct {
	SupplierID     int64         `json:"supplier_id" validate:"required"`
	Currency       string        `json:"currency" validate:"required"`
	ExchangeRate   string        `json:"exchange_rate"`
	ShippingMethod string        `json:"shipping_method"`
	TotalWeightKg  string        `json:"total_weight_kg"`
	Lines          []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineResponse struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	SupplierUnitPrice string `json:"supplier_unit_price"`
	OrderedQty        int64  `json:"ordered_qty"`
	ReceivedQty       int64  `json:"received_qty"`
	LostQty           int64  `json:"lost_qty"`
	FoundQty          int64  `json:"found_qty"`
	StockedQty        int64  `json:"stocked_qty"`
	HomeUnitPrice     string `json:"home_unit_price"`
	LineTotal         string `json:"line_total"`
	ShippingCost      string `json:"shipping_cost"`
	FinalUnitCost     string `json:"final_unit_cost"`
}

type orderResponse struct {
	ID              int64          `json:"id"`
	Number          string         `json:"number,omitempty"`
	SupplierID      int64          `json:"supplier_id"`
	Status          Status         `json:"status"`
	Currency        string         `json:"currency"`
	ExchangeRate    string         `json:"exchange_rate"`
	TotalAmount     string         `json:"total_amount"`
	TotalWeightKg   string         `json:"total_weight_kg"`
	TotalShipping   string         `json:"total_shipping"`
	PaymentAmount   string         `json:"payment_amount"`
	PaidFromCredit  string         `json:"paid_from_credit"`
	PaidFromAccount string         `json:"paid_from_account"`
	RefundAmount    string         `json:"refund_amount"`
	RefundCredited  bool           `json:"refund_credited"`
	CreditNoteID    string         `json:"credit_note_id,omitempty"`
	Courier         string         `json:"courier,omitempty"`
	TrackingNumber  string         `json:"tracking_number,omitempty"`
	LotNumber       string         `json:"lot_number,omitempty"`
	HubTracking     string         `json:"hub_tracking_number,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	Lines           []lineResponse `json:"lines,omitempty"`
}

func toOrderResponse(po PurchaseOrder, lines []OrderLine, summary string) orderResponse {
	out := orderResponse{
		ID:              po.ID,
		Number:          po.Number,
		SupplierID:      po.SupplierID,
		Status:          po.Status,
		Currency:        po.Currency,
		ExchangeRate:    po.ExchangeRate.String(),
		TotalAmount:     po.TotalAmount.String(),
		TotalWeightKg:   po.TotalWeightKg.String(),
		TotalShipping:   po.TotalShipping.String(),
		PaymentAmount:   po.PaymentAmount.String(),
		PaidFromCredit:  po.PaidFromCredit.String(),
		PaidFromAccount: po.PaidFromAccount.String(),
		RefundAmount:    po.RefundAmount.String(),
		RefundCredited:  po.RefundCredited,
		CreditNoteID:    po.CreditNoteID,
		Courier:         po.Courier,
		TrackingNumber:  po.TrackingNumber,
		LotNumber:       po.LotNumber,
		HubTracking:     po.HubTrackingNumber,
		Summary:         summary,
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, lineResponse{
			ID:                l.ID,
			ProductID:         l.ProductID,
			SupplierUnitPrice: l.SupplierUnitPrice.String(),
			OrderedQty:        l.OrderedQty,
			ReceivedQty:       l.ReceivedQty,
			LostQty:           l.LostQty,
			FoundQty:          l.FoundQty,
			StockedQty:        l.StockedQty,
			HomeUnitPrice:     l.HomeUnitPrice.String(),
			LineTotal:         l.LineTotal.String(),
			ShippingCost:      l.ShippingCost.String(),
			FinalUnitCost:     l.FinalUnitCost.String(),
		})
	}
	return out
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func parseLines(reqs []lineRequest) ([]LineInput, error) {
	lines := make([]LineInput, 0, len(reqs))
	for _, lr := range reqs {
		price, err := parseDecimal(lr.SupplierUnitPrice)
		if err != nil {
			return nil, err
		}
		unitWeight, err := parseDecimal(lr.UnitWeightGrams)
		if err != nil {
			return nil, err
		}
		extraWeight, err := parseDecimal(lr.ExtraWeightGrams)
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineInput{
			ProductID:         lr.ProductID,
			SupplierUnitPrice: price,
			OrderedQty:        lr.OrderedQty,
			UnitWeightGrams:   unitWeight,
			ExtraWeightGrams:  extraWeight,
		})
	}
	return lines, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.ProblemWithReason(w, http.StatusNotFound, "Not Found", err.Error(), "order_not_found")
	case errors.Is(err, ErrValidation):
		httpx.ProblemWithReason(w, http.StatusBadRequest, "Validation Failed", err.Error(), "validation_failed")
	case errors.Is(err, ErrInvalidTransition):
		httpx.ProblemWithReason(w, http.StatusConflict, "Conflict", err.Error(), "invalid_transition")
	case errors.Is(err, ErrNotDraft):
		httpx.ProblemWithReason(w, http.StatusConflict, "Conflict", err.Error(), "not_draft")
	case errors.Is(err, ErrSettled):
		httpx.ProblemWithReason(w, http.StatusConflict, "Conflict", err.Error(), "order_settled")
	case errors.Is(err, ErrOverdraftRejected):
		httpx.ProblemWithReason(w, http.StatusUnprocessableEntity, "Overdraft Rejected", err.Error(), "overdraft_rejected")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.ProblemWithReason(w, http.StatusConflict, "Conflict", err.Error(), "duplicate_request")
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.ProblemWithReason(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body", "validation_failed")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.ProblemWithReason(w, http.StatusBadRequest, "Validation Failed", err.Error(), "validation_failed")
		return false
	}
	return true
}

func orderID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	rate, err := parseDecimal(req.ExchangeRate)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	weight, err := parseDecimal(req.TotalWeightKg)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	order, orderLines, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		SupplierID:     req.SupplierID,
		Currency:       req.Currency,
		ExchangeRate:   rate,
		ShippingMethod: req.ShippingMethod,
		TotalWeightKg:  weight,
		CreatedBy:      shared.ActorFromContext(r.Context()),
		Lines:          lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(order, orderLines, ""))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	filters := ListFilters{
		Status:     r.URL.Query().Get("status"),
		SupplierID: supplierID,
		Search:     r.URL.Query().Get("search"),
	}
	orders, total, err := h.service.ListOrders(r.Context(), limit, offset, filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items := make([]orderResponse, 0, len(orders))
	for _, po := range orders {
		items = append(items, toOrderResponse(po, nil, ""))
	}
	page := shared.NewPagination(offset/limit+1, limit, total)
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "page": page})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, lines, err := h.service.GetOrder(r.Context(), orderID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order, lines, ""))
}

type historyResponse struct {
	Previous Status    `json:"previous"`
	Next     Status    `json:"next"`
	Comment  string    `json:"comment,omitempty"`
	ActorID  int64     `json:"actor_id"`
	At       time.Time `json:"at"`
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), orderID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResponse{Previous: e.Previous, Next: e.Next, Comment: e.Comment, ActorID: e.ActorID, At: e.At})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type replaceLinesRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) replaceLines(w http.ResponseWriter, r *http.Request) {
	var req replaceLinesRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	if err := h.service.ReplaceLines(r.Context(), orderID(r), shared.ActorFromContext(r.Context()), lines); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exchangeRateRequest struct {
	ExchangeRate string `json:"exchange_rate" validate:"required"`
}

func (h *Handler) updateExchangeRate(w http.ResponseWriter, r *http.Request) {
	var req exchangeRateRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	rate, err := decimal.NewFromString(req.ExchangeRate)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	order, lines, err := h.service.UpdateExchangeRate(r.Context(), orderID(r), shared.ActorFromContext(r.Context()), rate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order, lines, ""))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), orderID(r), shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, input TransitionInput) {
	input.OrderID = orderID(r)
	input.ActorID = shared.ActorFromContext(r.Context())
	result, err := h.service.Transition(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(result.Order, result.Lines, result.Summary))
}

type confirmPaymentRequest struct {
	FundingAccountID int64  `json:"funding_account_id" validate:"required"`
	ExchangeRate     string `json:"exchange_rate"`
	ExpectedDate     string `json:"expected_date"`
	Comment          string `json:"comment"`
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	rate, err := parseDecimal(req.ExchangeRate)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	var expected time.Time
	if req.ExpectedDate != "" {
		expected, err = time.Parse("2006-01-02", req.ExpectedDate)
		if err != nil {
			h.respondError(w, ErrValidation)
			return
		}
	}
	h.transition(w, r, TransitionInput{
		To:               StatusPaymentConfirmed,
		Comment:          req.Comment,
		FundingAccountID: req.FundingAccountID,
		ExchangeRate:     rate,
		ExpectedDate:     expected,
		IdempotencyKey:   r.Header.Get("Idempotency-Key"),
	})
}

type dispatchRequest struct {
	Courier        string `json:"courier" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
	Comment        string `json:"comment"`
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	h.transition(w, r, TransitionInput{
		To:             StatusSupplierDispatched,
		Comment:        req.Comment,
		Courier:        req.Courier,
		TrackingNumber: req.TrackingNumber,
	})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) warehouseReceived(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	_ = httpx.DecodeJSON(r, &req)
	h.transition(w, r, TransitionInput{To: StatusWarehouseReceived, Comment: req.Comment})
}

type shipRequest struct {
	LotNumber string `json:"lot_number" validate:"required"`
	Comment   string `json:"comment"`
}

func (h *Handler) ship(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	h.transition(w, r, TransitionInput{To: StatusShippedDestination, Comment: req.Comment, LotNumber: req.LotNumber})
}

type arriveRequest struct {
	FreightRatePerKg string `json:"freight_rate_per_kg" validate:"required"`
	Comment          string `json:"comment"`
}

func (h *Handler) arrive(w http.ResponseWriter, r *http.Request) {
	var req arriveRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	rate, err := parseDecimal(req.FreightRatePerKg)
	if err != nil {
		h.respondError(w, ErrValidation)
		return
	}
	h.transition(w, r, TransitionInput{To: StatusArrivedDestination, Comment: req.Comment, FreightRatePerKg: rate})
}

type transitHubRequest struct {
	HubTrackingNumber string `json:"hub_tracking_number" validate:"required"`
	Comment           string `json:"comment"`
}

func (h *Handler) transitHub(w http.ResponseWriter, r *http.Request) {
	var req transitHubRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	h.transition(w, r, TransitionInput{To: StatusInTransitHub, Comment: req.Comment, HubTrackingNumber: req.HubTrackingNumber})
}

type receiveRequest struct {
	Status   string          `json:"status" validate:"required,oneof=RECEIVED_HUB PARTIAL_COMPLETE"`
	Received map[int64]int64 `json:"received" validate:"required,min=1"`
	Comment  string          `json:"comment"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	h.transition(w, r, TransitionInput{To: Status(req.Status), Comment: req.Comment, Received: req.Received})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	_ = httpx.DecodeJSON(r, &req)
	h.transition(w, r, TransitionInput{To: StatusCompleted, Comment: req.Comment})
}

type markLostRequest struct {
	Lost    map[int64]int64 `json:"lost" validate:"required,min=1"`
	Comment string          `json:"comment"`
}

func (h *Handler) markLost(w http.ResponseWriter, r *http.Request) {
	var req markLostRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	h.transition(w, r, TransitionInput{To: StatusLost, Comment: req.Comment, Lost: req.Lost})
}
