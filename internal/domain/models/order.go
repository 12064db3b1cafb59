package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus enumerates the procurement order lifecycle.
type OrderStatus string

const (
	StatusPendingMDApproval OrderStatus = "pending_md_approval"
	StatusMDApproved        OrderStatus = "md_approved"
	StatusRejected          OrderStatus = "rejected"
	StatusPendingPayment    OrderStatus = "pending_payment"
	StatusPaid              OrderStatus = "paid"
)

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPendingMDApproval, StatusMDApproved, StatusRejected, StatusPendingPayment, StatusPaid:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusPaid
}

// CanTransitionTo checks the lifecycle edge s -> target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case StatusPendingMDApproval:
		return target == StatusMDApproved || target == StatusRejected
	case StatusMDApproved:
		return target == StatusPendingPayment
	case StatusPendingPayment:
		return target == StatusPaid
	}
	return false
}

// LineDecision is the MD's verdict on a single order line.
type LineDecision string

const (
	DecisionPending  LineDecision = "pending"
	DecisionApproved LineDecision = "approved"
	DecisionRejected LineDecision = "rejected"
)

// IsValid reports whether d is a verdict an MD can give.
func (d LineDecision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// PaymentMode is how accounts settled a bill.
type PaymentMode string

const (
	PaymentCash         PaymentMode = "cash"
	PaymentBankTransfer PaymentMode = "bank_transfer"
	PaymentCheque       PaymentMode = "cheque"
	PaymentUPI          PaymentMode = "upi"
)

// IsValid reports whether m is a supported payment mode.
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentCheque, PaymentUPI:
		return true
	}
	return false
}

// OrderLine is a billed item on a procurement order.
type OrderLine struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ItemID    primitive.ObjectID `bson:"item_id" json:"item_id"`
	ItemName  string             `bson:"item_name" json:"item_name"`
	Quantity  decimal.Decimal    `bson:"quantity" json:"quantity"`
	Unit      string             `bson:"unit" json:"unit"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
	GSTRate   decimal.Decimal    `bson:"gst_rate" json:"gst_rate"`
	Subtotal  decimal.Decimal    `bson:"subtotal" json:"subtotal"`
	GSTAmount decimal.Decimal    `bson:"gst_amount" json:"gst_amount"`
	Total     decimal.Decimal    `bson:"total" json:"total"`
	Decision  LineDecision       `bson:"decision" json:"decision"`
	Remarks   string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// ProcurementOrder is a vendor bill raised by procurement and approved by the MD.
type ProcurementOrder struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VendorID         primitive.ObjectID  `bson:"vendor_id" json:"vendor_id"`
	VendorName       string              `bson:"vendor_name" json:"vendor_name"`
	BillNumber       string              `bson:"bill_number" json:"bill_number"`
	BillDate         time.Time           `bson:"bill_date" json:"bill_date"`
	BillURL          string              `bson:"bill_url,omitempty" json:"bill_url,omitempty"`
	Lines            []OrderLine         `bson:"lines" json:"lines"`
	Subtotal         decimal.Decimal     `bson:"subtotal" json:"subtotal"`
	GSTTotal         decimal.Decimal     `bson:"gst_total" json:"gst_total"`
	FinalAmount      decimal.Decimal     `bson:"final_amount" json:"final_amount"`
	Status           OrderStatus         `bson:"status" json:"status"`
	Remarks          string              `bson:"remarks,omitempty" json:"remarks,omitempty"`
	RequestedBy      primitive.ObjectID  `bson:"requested_by" json:"requested_by"`
	ApprovedBy       *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	PaidBy           *primitive.ObjectID `bson:"paid_by,omitempty" json:"paid_by,omitempty"`
	PaidAt           *time.Time          `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	PaymentMode      PaymentMode         `bson:"payment_mode,omitempty" json:"payment_mode,omitempty"`
	PaymentReference string              `bson:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// Recalculate refreshes line and order amounts. Rejected lines keep their own amounts
// but do not count towards the order totals.
func (o *ProcurementOrder) Recalculate() {
	subtotal := decimal.Zero
	gst := decimal.Zero

	for i := range o.Lines {
		line := &o.Lines[i]
		line.Subtotal = line.Quantity.Mul(line.Price).Round(2)
		line.GSTAmount = line.Subtotal.Mul(line.GSTRate).Div(hundred).Round(2)
		line.Total = line.Subtotal.Add(line.GSTAmount)

		if line.Decision == DecisionRejected {
			continue
		}
		subtotal = subtotal.Add(line.Subtotal)
		gst = gst.Add(line.GSTAmount)
	}

	o.Subtotal = subtotal
	o.GSTTotal = gst
	o.FinalAmount = subtotal.Add(gst)
}

// Transition moves the order to target when the lifecycle allows it.
func (o *ProcurementOrder) Transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return &TransitionError{From: o.Status, To: target}
	}
	o.Status = target
	return nil
}

// LineReview is a per-line verdict.
type LineReview struct {
	LineID   primitive.ObjectID `json:"line_id" binding:"required"`
	Decision LineDecision       `json:"decision" binding:"required"`
	Remarks  string             `json:"remarks"`
}

// ApplyReview records the MD's verdicts and returns the status the order should move to.
// A whole-order decision, when given, applies to every line first; per-line reviews then
// override it. Lines left undecided are approved.
func (o *ProcurementOrder) ApplyReview(whole LineDecision, lines []LineReview) (OrderStatus, error) {
	if whole != "" && !whole.IsValid() {
		return "", Invalid("decision", "must be approved or rejected")
	}
	if whole == "" && len(lines) == 0 {
		return "", Invalid("decision", "a whole-order decision or line decisions are required")
	}

	index := make(map[primitive.ObjectID]int, len(o.Lines))
	for i, line := range o.Lines {
		index[line.ID] = i
		if whole != "" {
			o.Lines[i].Decision = whole
		}
	}

	for _, review := range lines {
		if !review.Decision.IsValid() {
			return "", Invalid("lines.decision", "must be approved or rejected")
		}
		i, ok := index[review.LineID]
		if !ok {
			return "", Invalid("lines.line_id", "unknown line "+review.LineID.Hex())
		}
		o.Lines[i].Decision = review.Decision
		o.Lines[i].Remarks = review.Remarks
	}

	approved := 0
	for i := range o.Lines {
		if o.Lines[i].Decision == DecisionPending {
			o.Lines[i].Decision = DecisionApproved
		}
		if o.Lines[i].Decision == DecisionApproved {
			approved++
		}
	}

	o.Recalculate()

	if approved == 0 {
		return StatusRejected, nil
	}
	return StatusMDApproved, nil
}

// ApprovedLines returns the lines the MD accepted.
func (o *ProcurementOrder) ApprovedLines() []OrderLine {
	out := make([]OrderLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if line.Decision == DecisionApproved {
			out = append(out, line)
		}
	}
	return out
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status   OrderStatus
	VendorID *primitive.ObjectID
	From     time.Time
	To       time.Time
}
