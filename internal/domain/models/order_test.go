package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleOrder() *ProcurementOrder {
	order := &ProcurementOrder{
		Status: StatusPendingMDApproval,
		Lines: []OrderLine{
			{ID: primitive.NewObjectID(), Quantity: dec("10"), Price: dec("42.50"), GSTRate: dec("5"), Decision: DecisionPending},
			{ID: primitive.NewObjectID(), Quantity: dec("3.5"), Price: dec("120"), GSTRate: dec("18"), Decision: DecisionPending},
			{ID: primitive.NewObjectID(), Quantity: dec("1"), Price: dec("999.99"), GSTRate: dec("12"), Decision: DecisionPending},
		},
	}
	order.Recalculate()
	return order
}

func TestRecalculate_FinalIsSubtotalPlusGST(t *testing.T) {
	order := sampleOrder()

	assert.True(t, order.Subtotal.Equal(dec("1844.99")), "subtotal %s", order.Subtotal)
	assert.True(t, order.GSTTotal.Equal(dec("216.85")), "gst %s", order.GSTTotal)
	assert.True(t, order.FinalAmount.Equal(order.Subtotal.Add(order.GSTTotal)))

	for _, line := range order.Lines {
		assert.True(t, line.Total.Equal(line.Subtotal.Add(line.GSTAmount)))
	}
}

func TestRecalculate_SkipsRejectedLines(t *testing.T) {
	order := sampleOrder()
	order.Lines[2].Decision = DecisionRejected
	order.Recalculate()

	assert.True(t, order.Subtotal.Equal(dec("845")), "subtotal %s", order.Subtotal)
	assert.True(t, order.FinalAmount.Equal(order.Subtotal.Add(order.GSTTotal)))
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPendingMDApproval, StatusMDApproved, true},
		{StatusPendingMDApproval, StatusRejected, true},
		{StatusPendingMDApproval, StatusPaid, false},
		{StatusMDApproved, StatusPendingPayment, true},
		{StatusMDApproved, StatusRejected, false},
		{StatusPendingPayment, StatusPaid, true},
		{StatusRejected, StatusPaid, false},
		{StatusRejected, StatusPendingPayment, false},
		{StatusRejected, StatusMDApproved, false},
		{StatusPaid, StatusMDApproved, false},
		{StatusPaid, StatusPendingMDApproval, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransition_RejectedCannotBePaid(t *testing.T) {
	order := &ProcurementOrder{Status: StatusRejected}

	err := order.Transition(StatusPaid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StatusRejected, order.Status)
}

func TestApplyReview_WholeOrderReject(t *testing.T) {
	order := sampleOrder()

	status, err := order.ApplyReview(DecisionRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, status)
	assert.True(t, order.FinalAmount.IsZero())
}

func TestApplyReview_PerLine(t *testing.T) {
	order := sampleOrder()

	status, err := order.ApplyReview("", []LineReview{
		{LineID: order.Lines[1].ID, Decision: DecisionRejected, Remarks: "rate too high"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusMDApproved, status)
	assert.Equal(t, DecisionApproved, order.Lines[0].Decision)
	assert.Equal(t, DecisionRejected, order.Lines[1].Decision)
	assert.Equal(t, "rate too high", order.Lines[1].Remarks)
	assert.Len(t, order.ApprovedLines(), 2)
	assert.True(t, order.Subtotal.Equal(dec("1424.99")), "subtotal %s", order.Subtotal)
}

func TestApplyReview_UnknownLine(t *testing.T) {
	order := sampleOrder()

	_, err := order.ApplyReview("", []LineReview{{LineID: primitive.NewObjectID(), Decision: DecisionApproved}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lines.line_id", verr.Field)
}

func TestApplyReview_RequiresDecision(t *testing.T) {
	order := sampleOrder()

	_, err := order.ApplyReview("", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
