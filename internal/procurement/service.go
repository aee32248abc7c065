package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, []OrderLine, error)
	ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error)
	History(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error)
}

// TxRepository exposes the transactional operations of one atomic unit. The
// collaborator ledgers share the transaction, so a failed step rolls back
// every debit, credit and the status change itself.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, []OrderLine, error)
	InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line OrderLine) (int64, error)
	UpdateOrder(ctx context.Context, po PurchaseOrder) error
	UpdateLine(ctx context.Context, line OrderLine) error
	DeleteLines(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, id int64) error
	AppendHistory(ctx context.Context, entry StatusHistoryEntry) error

	Wallet() WalletPort
	Treasury() TreasuryPort
	Rates() RatePort
}

// WalletPort is the supplier credit ledger inside the transaction.
type WalletPort interface {
	Balance(ctx context.Context, supplierID int64) (decimal.Decimal, error)
	Credit(ctx context.Context, supplierID int64, amount decimal.Decimal, memo string) error
	Debit(ctx context.Context, supplierID int64, amount decimal.Decimal, memo string) error
}

// TreasuryPort is the funding account registry inside the transaction.
type TreasuryPort interface {
	Balance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	Debit(ctx context.Context, accountID int64, amount decimal.Decimal) error
}

// RatePort writes the shared currency rate inside the transaction.
type RatePort interface {
	SetRate(ctx context.Context, code string, rate decimal.Decimal) error
}

// RateProvider reads rates outside a transaction and drops stale cache
// entries after a committed rate change.
type RateProvider interface {
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
	Invalidate(ctx context.Context, code string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards payment confirmation against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// TransitionMetrics counts transition attempts per target status.
type TransitionMetrics interface {
	ObserveTransition(target, outcome string)
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status     string
	SupplierID int64
	Search     string
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo        RepositoryPort
	dispatcher  Dispatcher
	rates       RateProvider
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     TransitionMetrics
	logger      *slog.Logger
	printer     *message.Printer
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, dispatcher Dispatcher, rates RateProvider, audit AuditPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		dispatcher:  dispatcher,
		rates:       rates,
		audit:       audit,
		idempotency: idem,
		logger:      logger,
		printer:     message.NewPrinter(language.English),
	}
}

// WithMetrics attaches a transition counter. Optional.
func (s *Service) WithMetrics(m TransitionMetrics) *Service {
	s.metrics = m
	return s
}

// LineInput describes one order line at creation or replacement.
type LineInput struct {
	ProductID         int64
	SupplierUnitPrice decimal.Decimal
	OrderedQty        int64
	UnitWeightGrams   decimal.Decimal
	ExtraWeightGrams  decimal.Decimal
}

// CreateOrderInput describes the creation payload.
type CreateOrderInput struct {
	SupplierID     int64
	Currency       string
	ExchangeRate   decimal.Decimal
	ShippingMethod string
	TotalWeightKg  decimal.Decimal
	CreatedBy      int64
	Lines          []LineInput
}

func buildLine(input LineInput, rate decimal.Decimal) (OrderLine, error) {
	line := OrderLine{
		ProductID:         input.ProductID,
		SupplierUnitPrice: input.SupplierUnitPrice,
		OrderedQty:        input.OrderedQty,
		UnitWeightGrams:   input.UnitWeightGrams,
		ExtraWeightGrams:  input.ExtraWeightGrams,
	}
	if line.OrderedQty <= 0 {
		return OrderLine{}, ErrValidation
	}
	if err := line.Validate(); err != nil {
		return OrderLine{}, err
	}
	line.HomeUnitPrice = line.SupplierUnitPrice.Mul(rate)
	line.LineTotal = line.HomeUnitPrice.Mul(decimal.NewFromInt(line.OrderedQty))
	line.FinalUnitCost = line.LandedCost()
	return line, nil
}

// CreateOrder persists a draft order with its lines. The supplier-currency
// total is fixed here and never changes after the order leaves draft.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, []OrderLine, error) {
	if input.SupplierID == 0 || input.Currency == "" || len(input.Lines) == 0 {
		return PurchaseOrder{}, nil, ErrValidation
	}
	rate := input.ExchangeRate
	if rate.Sign() <= 0 {
		if s.rates == nil {
			return PurchaseOrder{}, nil, ErrValidation
		}
		fetched, err := s.rates.Rate(ctx, input.Currency)
		if err != nil {
			return PurchaseOrder{}, nil, err
		}
		rate = fetched
	}
	order := PurchaseOrder{
		SupplierID:     input.SupplierID,
		Status:         StatusDraft,
		Currency:       input.Currency,
		ExchangeRate:   rate,
		TotalWeightKg:  input.TotalWeightKg,
		ShippingMethod: input.ShippingMethod,
		CreatedBy:      input.CreatedBy,
	}
	lines := make([]OrderLine, 0, len(input.Lines))
	total := decimal.Zero
	for _, li := range input.Lines {
		line, err := buildLine(li, rate)
		if err != nil {
			return PurchaseOrder{}, nil, err
		}
		total = total.Add(li.SupplierUnitPrice.Mul(decimal.NewFromInt(li.OrderedQty)))
		lines = append(lines, line)
	}
	order.TotalAmount = total

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		for i := range lines {
			lines[i].OrderID = orderID
			lineID, err := tx.InsertLine(ctx, lines[i])
			if err != nil {
				return err
			}
			lines[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	s.recordAudit(ctx, input.CreatedBy, "PO_CREATE", order.ID, map[string]any{"supplier_id": order.SupplierID, "total": order.TotalAmount.String()})
	return order, lines, nil
}

// ReplaceLines swaps the full line set of a draft order.
func (s *Service) ReplaceLines(ctx context.Context, orderID int64, actorID int64, inputs []LineInput) error {
	if len(inputs) == 0 {
		return ErrValidation
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, _, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return ErrNotDraft
		}
		if err := tx.DeleteLines(ctx, orderID); err != nil {
			return err
		}
		total := decimal.Zero
		for _, li := range inputs {
			line, err := buildLine(li, order.ExchangeRate)
			if err != nil {
				return err
			}
			line.OrderID = orderID
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
			total = total.Add(li.SupplierUnitPrice.Mul(decimal.NewFromInt(li.OrderedQty)))
		}
		order.TotalAmount = total
		return tx.UpdateOrder(ctx, order)
	})
}

// DeleteOrder removes a draft order and cascades its lines. Confirmed orders
// are never hard-deleted; loss is a terminal status instead.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, _, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return ErrNotDraft
		}
		if err := tx.DeleteLines(ctx, orderID); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PO_DELETE", orderID, nil)
	return nil
}

// GetOrder returns an order with its lines.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (PurchaseOrder, []OrderLine, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders returns a filtered page of orders with the total count.
func (s *Service) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	return s.repo.ListOrders(ctx, limit, offset, filters)
}

// History returns the append-only transition log of an order.
func (s *Service) History(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error) {
	return s.repo.History(ctx, orderID)
}

// UpdateExchangeRate revalues a not-yet-settled order at a new rate. The
// edited rate also updates the shared rate registry inside the same
// transaction; the cached quote is dropped after commit.
func (s *Service) UpdateExchangeRate(ctx context.Context, orderID, actorID int64, newRate decimal.Decimal) (PurchaseOrder, []OrderLine, error) {
	if newRate.Sign() <= 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: exchange rate must be positive", ErrValidation)
	}
	var (
		order    PurchaseOrder
		lines    []OrderLine
		rateCode string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, lines, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if IsTerminal(order.Status) {
			return ErrSettled
		}
		if order.ExchangeRate.Equal(newRate) {
			return nil
		}
		Revalue(&order, lines, newRate)
		if err := tx.Rates().SetRate(ctx, order.Currency, newRate); err != nil {
			return err
		}
		rateCode = order.Currency
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		for i := range lines {
			if err := tx.UpdateLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if rateCode != "" {
		if s.rates != nil {
			if err := s.rates.Invalidate(ctx, rateCode); err != nil {
				s.logger.Warn("invalidate rate cache", slog.Any("error", err), slog.String("code", rateCode))
			}
		}
		s.recordAudit(ctx, actorID, "PO_RATE_EDIT", order.ID, map[string]any{
			"rate":   newRate.String(),
			"number": order.Number,
		})
	}
	return order, lines, nil
}

// TransitionResult is returned by successful transitions: the updated order,
// its lines and a human-readable summary of derived values for audit.
type TransitionResult struct {
	Order   PurchaseOrder
	Lines   []OrderLine
	Summary string
}

type pendingEvents struct {
	stock    *StockReceivedEvent
	refund   *RefundIssuedEvent
	rateCode string
}

// Transition moves an order to the target status, running the side effects
// bound to that edge inside one atomic unit together with the history write.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (TransitionResult, error) {
	if err := input.validatePayload(); err != nil {
		return TransitionResult{}, err
	}
	idemInserted := false
	if input.To == StatusPaymentConfirmed && input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "procurement.payment"); err != nil {
			return TransitionResult{}, err
		}
		idemInserted = true
	}

	var result TransitionResult
	var events pendingEvents
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, lines, err := tx.GetOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, input.To) {
			return ErrInvalidTransition
		}
		previous := order.Status

		summary, err := s.applyTransition(ctx, tx, &order, lines, input, &events)
		if err != nil {
			return err
		}

		order.Status = input.To
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		for i := range lines {
			if err := tx.UpdateLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if err := tx.AppendHistory(ctx, StatusHistoryEntry{
			OrderID:  order.ID,
			Previous: previous,
			Next:     input.To,
			Comment:  input.Comment,
			ActorID:  input.ActorID,
			At:       time.Now(),
		}); err != nil {
			return err
		}
		result = TransitionResult{Order: order, Lines: lines, Summary: summary}
		return nil
	})
	if err != nil {
		if idemInserted {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		if s.metrics != nil {
			s.metrics.ObserveTransition(string(input.To), "rejected")
		}
		return TransitionResult{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(input.To), "applied")
	}

	s.afterCommit(ctx, input, result, events)
	return result, nil
}

func (s *Service) applyTransition(ctx context.Context, tx TxRepository, order *PurchaseOrder, lines []OrderLine, input TransitionInput, events *pendingEvents) (string, error) {
	switch input.To {
	case StatusPaymentConfirmed:
		return s.confirmPayment(ctx, tx, order, lines, input, events)
	case StatusSupplierDispatched:
		order.Courier = input.Courier
		order.TrackingNumber = input.TrackingNumber
		return fmt.Sprintf("dispatched via %s, tracking %s", order.Courier, order.TrackingNumber), nil
	case StatusWarehouseReceived:
		return "received at supplier-side warehouse", nil
	case StatusShippedDestination:
		order.LotNumber = input.LotNumber
		return fmt.Sprintf("shipped under lot %s", order.LotNumber), nil
	case StatusArrivedDestination:
		ApportionFreight(order, lines, input.FreightRatePerKg, freightByOrdered)
		return s.printer.Sprintf("freight apportioned at %.2f/kg, total shipping %.2f",
			input.FreightRatePerKg.InexactFloat64(), order.TotalShipping.InexactFloat64()), nil
	case StatusInTransitHub:
		order.HubTrackingNumber = input.HubTrackingNumber
		return fmt.Sprintf("in transit to hub, tracking %s", order.HubTrackingNumber), nil
	case StatusReceivedHub, StatusPartialComplete:
		return s.reconcileReceipt(ctx, tx, order, lines, input, events)
	case StatusCompleted:
		return s.completeOrder(order, lines, events)
	case StatusLost:
		if err := RedistributeLoss(lines, input.Lost); err != nil {
			return "", err
		}
		return "loss redistributed across surviving lines", nil
	}
	return "", ErrInvalidTransition
}

func (s *Service) confirmPayment(ctx context.Context, tx TxRepository, order *PurchaseOrder, lines []OrderLine, input TransitionInput, events *pendingEvents) (string, error) {
	if order.Number == "" {
		order.Number = generateNumber("PO")
	}
	if order.ExpectedDate.IsZero() {
		if !input.ExpectedDate.IsZero() {
			order.ExpectedDate = input.ExpectedDate
		} else {
			order.ExpectedDate = time.Now().AddDate(0, 0, 14)
		}
	}
	if input.ExchangeRate.Sign() > 0 && !input.ExchangeRate.Equal(order.ExchangeRate) {
		Revalue(order, lines, input.ExchangeRate)
		if err := tx.Rates().SetRate(ctx, order.Currency, input.ExchangeRate); err != nil {
			return "", err
		}
		events.rateCode = order.Currency
	}

	// the funding account must exist even when credit covers everything
	if _, err := tx.Treasury().Balance(ctx, input.FundingAccountID); err != nil {
		return "", err
	}

	totalHome := order.TotalAmount.Mul(order.ExchangeRate)
	creditBalance, err := tx.Wallet().Balance(ctx, order.SupplierID)
	if err != nil {
		return "", err
	}
	alloc := AllocatePayment(totalHome, creditBalance)
	if alloc.FromCredit.Sign() > 0 {
		memo := fmt.Sprintf("payment for order %s", order.Number)
		if err := tx.Wallet().Debit(ctx, order.SupplierID, alloc.FromCredit, memo); err != nil {
			return "", err
		}
	}
	if alloc.FromAccount.Sign() > 0 {
		if err := tx.Treasury().Debit(ctx, input.FundingAccountID, alloc.FromAccount); err != nil {
			return "", err
		}
	}
	order.FundingAccountID = input.FundingAccountID
	order.PaymentAmount = totalHome
	order.PaidFromCredit = alloc.FromCredit
	order.PaidFromAccount = alloc.FromAccount
	return s.printer.Sprintf("payment %.2f allocated: %.2f from supplier credit, %.2f from funding account",
		totalHome.InexactFloat64(), alloc.FromCredit.InexactFloat64(), alloc.FromAccount.InexactFloat64()), nil
}

func (s *Service) reconcileReceipt(ctx context.Context, tx TxRepository, order *PurchaseOrder, lines []OrderLine, input TransitionInput, events *pendingEvents) (string, error) {
	results, totalRefund, err := ReconcileReceipts(*order, lines, input.Received)
	if err != nil {
		return "", err
	}
	byLine := make(map[int64]LineReconciliation, len(results))
	for _, res := range results {
		byLine[res.LineID] = res
	}
	for i := range lines {
		line := &lines[i]
		res := byLine[line.ID]
		line.ReceivedQty = res.ReceivedQty
		line.LostQty = res.LostQty
		line.FoundQty = res.FoundQty
		if res.FoundQty > 0 {
			s.logger.Warn("over-receipt recorded",
				slog.Int64("order_id", order.ID),
				slog.Int64("line_id", line.ID),
				slog.Int64("found_qty", res.FoundQty))
		}
	}
	if totalRefund.Sign() > 0 {
		memo := fmt.Sprintf("refund for short receipt on order %s", order.Number)
		if err := tx.Wallet().Credit(ctx, order.SupplierID, totalRefund, memo); err != nil {
			return "", err
		}
		order.RefundAmount = totalRefund
		order.RefundCredited = true
		order.CreditNoteID = "CN-" + uuid.NewString()
		events.refund = &RefundIssuedEvent{
			OrderID:      order.ID,
			Number:       order.Number,
			SupplierID:   order.SupplierID,
			CreditNoteID: order.CreditNoteID,
			Amount:       totalRefund,
			At:           time.Now(),
		}
	}

	// re-run apportionment with corrected quantities; supersedes the
	// arrival-leg run and recomputes total weight from received units
	rate := decimal.Zero
	if input.FreightRatePerKg.Sign() > 0 {
		rate = input.FreightRatePerKg
	} else if len(lines) > 0 {
		rate = lines[0].FreightRatePerKg
	}
	ApportionFreight(order, lines, rate, freightByReceived)

	return s.printer.Sprintf("reconciled %d lines, refund %.2f", len(lines), totalRefund.InexactFloat64()), nil
}

func (s *Service) completeOrder(order *PurchaseOrder, lines []OrderLine, events *pendingEvents) (string, error) {
	stocked := make([]StockedLine, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		line.StockedQty = line.ReceivedQty
		stocked = append(stocked, StockedLine{
			ProductID:  line.ProductID,
			StockedQty: line.StockedQty,
			LandedCost: line.FinalUnitCost,
		})
	}
	events.stock = &StockReceivedEvent{
		OrderID: order.ID,
		Number:  order.Number,
		Lines:   stocked,
		At:      time.Now(),
	}
	return fmt.Sprintf("order %s completed, stock posted for %d lines", order.Number, len(lines)), nil
}

func (s *Service) afterCommit(ctx context.Context, input TransitionInput, result TransitionResult, events pendingEvents) {
	if events.rateCode != "" && s.rates != nil {
		if err := s.rates.Invalidate(ctx, events.rateCode); err != nil {
			s.logger.Warn("invalidate rate cache", slog.Any("error", err), slog.String("code", events.rateCode))
		}
	}
	s.recordAudit(ctx, input.ActorID, "PO_TRANSITION", result.Order.ID, map[string]any{
		"to":      string(input.To),
		"number":  result.Order.Number,
		"summary": result.Summary,
	})
	if s.dispatcher == nil {
		return
	}
	if events.refund != nil {
		if err := s.dispatcher.RefundIssued(ctx, *events.refund); err != nil {
			s.logger.Error("dispatch refund event", slog.Any("error", err), slog.Int64("order_id", result.Order.ID))
		}
	}
	if events.stock != nil {
		if err := s.dispatcher.StockReceived(ctx, *events.stock); err != nil {
			s.logger.Error("dispatch stock event", slog.Any("error", err), slog.Int64("order_id", result.Order.ID))
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "procurement", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
