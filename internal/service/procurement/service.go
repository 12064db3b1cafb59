package procurement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository"
	"github.com/mamadbah2/hotelerp/internal/service/inventory"
)

// ErrBillStorageDisabled is returned by UploadBill when no bill store is configured.
var ErrBillStorageDisabled = errors.New("bill storage is not configured")

// Repository is the persistence procurement needs.
type Repository interface {
	repository.Orders
	repository.Receipts
	repository.Vendors
	repository.Items
}

// StockPoster posts ledger movements.
type StockPoster interface {
	Post(ctx context.Context, m inventory.Movement) (*models.StockLedgerEntry, error)
}

// BillUploader stores bill documents and returns their URL.
type BillUploader interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

// Notifier is told about every committed transition.
type Notifier interface {
	OrderCreated(ctx context.Context, order models.ProcurementOrder)
	OrderReviewed(ctx context.Context, order models.ProcurementOrder)
	OrderAwaitingPayment(ctx context.Context, order models.ProcurementOrder)
	OrderPaid(ctx context.Context, order models.ProcurementOrder)
}

// Service runs the procurement order workflow.
type Service struct {
	repo     Repository
	stock    StockPoster
	bills    BillUploader
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the workflow. bills and notifier may be nil.
func NewService(repo Repository, stock StockPoster, bills BillUploader, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		stock:    stock,
		bills:    bills,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LineInput is an order line as submitted by procurement. GSTRate defaults to the
// catalog rate of the item.
type LineInput struct {
	ItemID   primitive.ObjectID `json:"item_id" binding:"required"`
	Quantity decimal.Decimal    `json:"quantity"`
	Unit     string             `json:"unit"`
	Price    decimal.Decimal    `json:"price"`
	GSTRate  *decimal.Decimal   `json:"gst_rate"`
}

// CreateInput is the payload of POST /procurement-orders.
type CreateInput struct {
	VendorID   primitive.ObjectID `json:"vendor_id" binding:"required"`
	BillNumber string             `json:"bill_number" binding:"required"`
	BillDate   time.Time          `json:"bill_date" binding:"required"`
	Lines      []LineInput        `json:"lines" binding:"required,min=1,dive"`
	Remarks    string             `json:"remarks"`
}

var maxGSTRate = decimal.NewFromInt(100)

// Create records a vendor bill and sends it to the MD for approval.
func (s *Service) Create(ctx context.Context, actor primitive.ObjectID, in CreateInput) (*models.ProcurementOrder, error) {
	billNumber := strings.TrimSpace(in.BillNumber)
	if billNumber == "" {
		return nil, models.Invalid("bill_number", "is required")
	}
	if in.BillDate.IsZero() {
		return nil, models.Invalid("bill_date", "is required")
	}
	if len(in.Lines) == 0 {
		return nil, models.Invalid("lines", "at least one line is required")
	}

	vendor, err := s.repo.GetVendor(ctx, in.VendorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Invalid("vendor_id", "unknown vendor")
		}
		return nil, err
	}
	if !vendor.Active {
		return nil, models.Invalid("vendor_id", "vendor is disabled")
	}

	lines := make([]models.OrderLine, 0, len(in.Lines))
	for i, li := range in.Lines {
		line, err := s.buildLine(ctx, fmt.Sprintf("lines[%d]", i), li)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	now := s.now()
	order := &models.ProcurementOrder{
		VendorID:    vendor.ID,
		VendorName:  vendor.Name,
		BillNumber:  billNumber,
		BillDate:    in.BillDate.UTC(),
		Lines:       lines,
		Status:      models.StatusPendingMDApproval,
		Remarks:     strings.TrimSpace(in.Remarks),
		RequestedBy: actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	order.Recalculate()

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("procurement order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("vendor", vendor.Name),
		zap.String("final_amount", order.FinalAmount.String()))
	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, *order)
	}
	return order, nil
}

func (s *Service) buildLine(ctx context.Context, field string, in LineInput) (models.OrderLine, error) {
	if !in.Quantity.IsPositive() {
		return models.OrderLine{}, models.Invalid(field+".quantity", "must be positive")
	}
	if in.Price.IsNegative() {
		return models.OrderLine{}, models.Invalid(field+".price", "must not be negative")
	}

	item, err := s.repo.GetItem(ctx, in.ItemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.OrderLine{}, models.Invalid(field+".item_id", "unknown item")
		}
		return models.OrderLine{}, err
	}
	if !item.Active {
		return models.OrderLine{}, models.Invalid(field+".item_id", "item is disabled")
	}

	rate := item.GSTRate
	if in.GSTRate != nil {
		rate = *in.GSTRate
	}
	if rate.IsNegative() || rate.GreaterThan(maxGSTRate) {
		return models.OrderLine{}, models.Invalid(field+".gst_rate", "must be between 0 and 100")
	}

	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = item.Unit
	}

	return models.OrderLine{
		ID:       primitive.NewObjectID(),
		ItemID:   item.ID,
		ItemName: item.Name,
		Quantity: in.Quantity,
		Unit:     unit,
		Price:    in.Price,
		GSTRate:  rate,
		Decision: models.DecisionPending,
	}, nil
}

// ReviewInput is the payload of POST /procurement-orders/:id/review.
type ReviewInput struct {
	Decision models.LineDecision `json:"decision"`
	Lines    []models.LineReview `json:"lines" binding:"omitempty,dive"`
	Remarks  string              `json:"remarks"`
}

// Review applies the MD's decision. Approved lines are received into the central store.
func (s *Service) Review(ctx context.Context, actor primitive.ObjectID, id primitive.ObjectID, in ReviewInput) (*models.ProcurementOrder, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPendingMDApproval {
		return nil, &models.TransitionError{From: order.Status, To: models.StatusMDApproved}
	}

	target, err := order.ApplyReview(in.Decision, in.Lines)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(target); err != nil {
		return nil, err
	}

	now := s.now()
	order.ApprovedBy = &actor
	order.ApprovedAt = &now
	order.UpdatedAt = now
	if remarks := strings.TrimSpace(in.Remarks); remarks != "" {
		order.Remarks = remarks
	}

	if err := s.repo.UpdateOrderIfStatus(ctx, order, models.StatusPendingMDApproval); err != nil {
		return nil, fmt.Errorf("review order: %w", err)
	}

	s.logger.Info("procurement order reviewed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("status", string(order.Status)),
		zap.String("final_amount", order.FinalAmount.String()))

	if order.Status == models.StatusMDApproved {
		if _, err := s.receive(ctx, actor, order); err != nil {
			s.logger.Error("approved order only partly received into store, retry with receive",
				zap.String("order_id", order.ID.Hex()), zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.OrderReviewed(ctx, *order)
	}
	return order, nil
}

// ReceiptStatus reports which approved lines of an order reached the central store.
type ReceiptStatus struct {
	OrderID  primitive.ObjectID   `json:"order_id"`
	Posted   []primitive.ObjectID `json:"posted"`
	Received []primitive.ObjectID `json:"received"`
	Pending  []primitive.ObjectID `json:"pending"`
}

// Receive posts the approved lines that have no receipt yet. It is safe to repeat.
func (s *Service) Receive(ctx context.Context, actor primitive.ObjectID, id primitive.ObjectID) (*ReceiptStatus, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.StatusMDApproved, models.StatusPendingPayment, models.StatusPaid:
	default:
		return nil, &models.TransitionError{From: order.Status, To: models.StatusMDApproved}
	}
	return s.receive(ctx, actor, order)
}

// receive claims each approved line before posting it, so a line is never posted twice.
// A failed posting releases its claim and the next call retries it.
func (s *Service) receive(ctx context.Context, actor primitive.ObjectID, order *models.ProcurementOrder) (*ReceiptStatus, error) {
	status := &ReceiptStatus{
		OrderID:  order.ID,
		Posted:   []primitive.ObjectID{},
		Received: []primitive.ObjectID{},
		Pending:  []primitive.ObjectID{},
	}

	done, err := s.repo.ReceivedLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load receipts of order %s: %w", order.ID.Hex(), err)
	}
	received := make(map[primitive.ObjectID]bool, len(done))
	for _, id := range done {
		received[id] = true
	}

	var errs []error
	for _, line := range order.ApprovedLines() {
		if received[line.ID] {
			status.Received = append(status.Received, line.ID)
			continue
		}
		posted, err := s.receiveLine(ctx, actor, order, line)
		switch {
		case err != nil:
			status.Pending = append(status.Pending, line.ID)
			errs = append(errs, err)
		case posted:
			status.Posted = append(status.Posted, line.ID)
			status.Received = append(status.Received, line.ID)
		default:
			status.Received = append(status.Received, line.ID)
		}
	}

	if len(status.Posted) > 0 {
		s.logger.Info("order lines received into store",
			zap.String("order_id", order.ID.Hex()),
			zap.Int("posted", len(status.Posted)),
			zap.Int("pending", len(status.Pending)))
	}
	if err := errors.Join(errs...); err != nil {
		return status, fmt.Errorf("receive order %s: %w", order.ID.Hex(), err)
	}
	return status, nil
}

func (s *Service) receiveLine(ctx context.Context, actor primitive.ObjectID, order *models.ProcurementOrder, line models.OrderLine) (bool, error) {
	claimed, err := s.repo.ClaimReceipt(ctx, order.ID, line.ID)
	if err != nil {
		return false, fmt.Errorf("receive %s: %w", line.ItemName, err)
	}
	if !claimed {
		return false, nil
	}

	_, err = s.stock.Post(ctx, inventory.Movement{
		ItemID:       line.ItemID,
		ItemName:     line.ItemName,
		Unit:         line.Unit,
		Location:     models.StoreLocation,
		Direction:    models.DirectionInward,
		Kind:         models.KindReceipt,
		Quantity:     line.Quantity,
		Date:         order.BillDate,
		Counterparty: order.VendorName,
		ReferenceID:  &order.ID,
		CreatedBy:    actor,
	})
	if err == nil {
		return true, nil
	}

	if releaseErr := s.repo.ReleaseReceipt(ctx, order.ID, line.ID); releaseErr != nil {
		s.logger.Error("failed to release receipt claim, line needs manual posting",
			zap.String("order_id", order.ID.Hex()),
			zap.String("line_id", line.ID.Hex()),
			zap.Error(releaseErr))
	}
	return false, fmt.Errorf("receive %s: %w", line.ItemName, err)
}

// AttachBill records the bill document URL and sends the order for payment.
func (s *Service) AttachBill(ctx context.Context, actor primitive.ObjectID, id primitive.ObjectID, billURL string) (*models.ProcurementOrder, error) {
	billURL = strings.TrimSpace(billURL)
	if billURL == "" {
		return nil, models.Invalid("bill_url", "is required")
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.StatusPendingPayment); err != nil {
		return nil, err
	}

	order.BillURL = billURL
	order.UpdatedAt = s.now()
	if err := s.repo.UpdateOrderIfStatus(ctx, order, models.StatusMDApproved); err != nil {
		return nil, fmt.Errorf("submit bill: %w", err)
	}

	s.logger.Info("bill submitted for payment", zap.String("order_id", order.ID.Hex()), zap.String("actor", actor.Hex()))
	if s.notifier != nil {
		s.notifier.OrderAwaitingPayment(ctx, *order)
	}
	return order, nil
}

// UploadBill stores the bill document and then attaches it like AttachBill.
func (s *Service) UploadBill(ctx context.Context, actor primitive.ObjectID, id primitive.ObjectID, filename, contentType string, body io.Reader) (*models.ProcurementOrder, error) {
	if s.bills == nil {
		return nil, ErrBillStorageDisabled
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.StatusPendingPayment) {
		return nil, &models.TransitionError{From: order.Status, To: models.StatusPendingPayment}
	}

	objectName := fmt.Sprintf("bills/%s/%d%s", order.ID.Hex(), s.now().Unix(), strings.ToLower(path.Ext(filename)))
	billURL, err := s.bills.Upload(ctx, objectName, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("store bill: %w", err)
	}
	return s.AttachBill(ctx, actor, id, billURL)
}

// PayInput is the payload of POST /procurement-orders/:id/pay.
type PayInput struct {
	PaymentMode models.PaymentMode `json:"payment_mode" binding:"required"`
	Reference   string             `json:"reference"`
}

// Pay marks the order as settled. The status compare-and-set makes a second concurrent
// payment fail with ErrConflict.
func (s *Service) Pay(ctx context.Context, actor primitive.ObjectID, id primitive.ObjectID, in PayInput) (*models.ProcurementOrder, error) {
	if !in.PaymentMode.IsValid() {
		return nil, models.Invalid("payment_mode", "must be one of cash, bank_transfer, cheque, upi")
	}
	reference := strings.TrimSpace(in.Reference)
	if in.PaymentMode != models.PaymentCash && reference == "" {
		return nil, models.Invalid("reference", "is required for non-cash payments")
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.StatusPaid); err != nil {
		return nil, err
	}

	now := s.now()
	order.PaymentMode = in.PaymentMode
	order.PaymentReference = reference
	order.PaidBy = &actor
	order.PaidAt = &now
	order.UpdatedAt = now

	if err := s.repo.UpdateOrderIfStatus(ctx, order, models.StatusPendingPayment); err != nil {
		return nil, fmt.Errorf("pay order: %w", err)
	}

	s.logger.Info("procurement order paid",
		zap.String("order_id", order.ID.Hex()),
		zap.String("mode", string(in.PaymentMode)),
		zap.String("amount", order.FinalAmount.String()))
	if s.notifier != nil {
		s.notifier.OrderPaid(ctx, *order)
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.ProcurementOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context, filter models.OrderFilter) ([]models.ProcurementOrder, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, models.Invalid("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	return s.repo.ListOrders(ctx, filter)
}
