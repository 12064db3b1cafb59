package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/config"
	"github.com/mamadbah2/hotelerp/internal/domain/models"
	client "github.com/mamadbah2/hotelerp/pkg/clients/whatsapp"
)

const (
	sendTimeout = 20 * time.Second
	dateLayout  = "2006-01-02"
)

// UserLookup resolves the phone number of the user who raised an order.
type UserLookup interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Service pushes workflow events to the people who have to act on them over WhatsApp.
// Messages are sent in the background; delivery failures are logged and never fail the
// operation that triggered them.
type Service struct {
	cfg    config.WhatsAppConfig
	client client.Client
	users  UserLookup
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewService wires a new notifier instance.
func NewService(cfg config.WhatsAppConfig, client client.Client, users UserLookup, logger *zap.Logger) *Service {
	svc := &Service{
		cfg:    cfg,
		client: client,
		users:  users,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// OrderCreated asks the MD to review a new order.
func (s *Service) OrderCreated(ctx context.Context, order models.ProcurementOrder) {
	body := fmt.Sprintf("New procurement order from %s (bill %s, %s) for %s awaits your approval.",
		order.VendorName, order.BillNumber, order.BillDate.Format(dateLayout), order.FinalAmount.StringFixed(2))
	s.dispatch(ctx, s.cfg.MDNumber, body, order.ID)
}

// OrderReviewed tells the requester what the MD decided.
func (s *Service) OrderReviewed(ctx context.Context, order models.ProcurementOrder) {
	var body string
	if order.Status == models.StatusRejected {
		body = fmt.Sprintf("Order %s from %s was rejected.", order.BillNumber, order.VendorName)
		if order.Remarks != "" {
			body += " Remarks: " + order.Remarks
		}
	} else {
		rejected := len(order.Lines) - len(order.ApprovedLines())
		body = fmt.Sprintf("Order %s from %s was approved for %s", order.BillNumber, order.VendorName, order.FinalAmount.StringFixed(2))
		if rejected > 0 {
			body += fmt.Sprintf(" (%d line(s) rejected)", rejected)
		}
		body += ". Upload the bill to send it for payment."
	}
	s.dispatchToUser(ctx, order.RequestedBy, body, order.ID)
}

// OrderAwaitingPayment tells accounts a bill is ready to be paid.
func (s *Service) OrderAwaitingPayment(ctx context.Context, order models.ProcurementOrder) {
	body := fmt.Sprintf("Bill %s from %s is ready for payment: %s.", order.BillNumber, order.VendorName, order.FinalAmount.StringFixed(2))
	s.dispatch(ctx, s.cfg.AccountsNumber, body, order.ID)
}

// OrderPaid tells the requester the vendor has been paid.
func (s *Service) OrderPaid(ctx context.Context, order models.ProcurementOrder) {
	body := fmt.Sprintf("Bill %s from %s was paid (%s, ref %s).", order.BillNumber, order.VendorName, order.PaymentMode, order.PaymentReference)
	s.dispatchToUser(ctx, order.RequestedBy, body, order.ID)
}

// DailyLeakage sends the nightly leakage snapshot to the MD.
func (s *Service) DailyLeakage(ctx context.Context, report models.DailyReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "Leakage for %s: issued %s, consumed %s, leakage %s (%s%%).",
		report.Date.Format(dateLayout),
		report.Total.Issued.String(),
		report.Total.Consumed.String(),
		report.Total.Leakage.String(),
		report.Total.PercentDifference.StringFixed(2))
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "\n- %s: %s (%s%%)", row.Label, row.Leakage.String(), row.PercentDifference.StringFixed(2))
	}
	s.dispatch(ctx, s.cfg.MDNumber, b.String(), report.ID)
}

// Wait blocks until every queued message has been attempted.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) dispatchToUser(ctx context.Context, userID primitive.ObjectID, body string, ref primitive.ObjectID) {
	if s.users == nil || userID.IsZero() {
		return
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn("cannot resolve notification recipient", zap.String("user_id", userID.Hex()), zap.Error(err))
		return
	}
	s.dispatch(ctx, user.Phone, body, ref)
}

func (s *Service) dispatch(ctx context.Context, to, body string, ref primitive.ObjectID) {
	if s.client == nil || to == "" {
		s.logger.Debug("notification skipped", zap.String("reference_id", ref.Hex()))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		id, err := s.client.SendText(sendCtx, to, body)
		if err != nil {
			s.logger.Error("failed to send notification", zap.String("reference_id", ref.Hex()), zap.Error(err))
			return
		}
		s.logger.Info("notification sent", zap.String("reference_id", ref.Hex()), zap.String("message_id", id))
	}()
}
