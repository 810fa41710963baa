package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAllocationItemsFallsBackToRequested(t *testing.T) {
	requested := LineItems{NewMoneyLine(decimal.NewFromInt(500), "meals")}
	appeal := Appeal{RequestedItems: requested}

	assert.Equal(t, []LineItem(requested), appeal.AllocationItems())

	appeal.ApprovedItems = LineItems{}
	assert.Equal(t, []LineItem(requested), appeal.AllocationItems(), "empty approved list")

	approved := LineItems{NewMoneyLine(decimal.NewFromInt(300), "meals")}
	appeal.ApprovedItems = approved
	assert.Equal(t, []LineItem(approved), appeal.AllocationItems())
}

func TestNewStatusUpdateAttribution(t *testing.T) {
	reviewer, approver := 7, 9
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	appeal := Appeal{ID: 3, Status: AppealUnderReview, ApprovedBy: &approver}
	update := appeal.NewStatusUpdate(now)
	assert.Equal(t, "Status changed to under_review", update.Message)
	assert.Equal(t, &approver, update.UpdatedBy)
	assert.Equal(t, now, update.Timestamp)

	appeal.ReviewedBy = &reviewer
	assert.Equal(t, &reviewer, appeal.NewStatusUpdate(now).UpdatedBy)
}

func TestAppealStatusIsApproval(t *testing.T) {
	assert.True(t, AppealApproved.IsApproval())
	assert.True(t, AppealPartiallyApproved.IsApproval())
	for _, s := range []AppealStatus{AppealPending, AppealUnderReview, AppealRejected, AppealFulfilled} {
		assert.False(t, s.IsApproval(), s)
	}
	assert.False(t, AppealStatus("closed").IsValid())
}
