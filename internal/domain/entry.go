package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle status of a single repayment entry.
type EntryStatus string

const (
	EntryStatusUpcoming EntryStatus = "upcoming"
	EntryStatusDue      EntryStatus = "due"
	EntryStatusOverdue  EntryStatus = "overdue"
	EntryStatusPaid     EntryStatus = "paid"
)

// ParseEntryStatus converts a raw string into an EntryStatus, rejecting
// anything outside the closed set.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch EntryStatus(s) {
	case EntryStatusUpcoming, EntryStatusDue, EntryStatusOverdue, EntryStatusPaid:
		return EntryStatus(s), nil
	}
	return "", ErrStatusUnknown
}

// RepaymentEntry is one installment period of a plan. Entries are created
// together with their plan and live exactly as long as it.
type RepaymentEntry struct {
	ID            int32           `json:"id"`
	PlanID        int32           `json:"planId"`
	InstallmentNo int32           `json:"installmentNo"`
	DueDate       time.Time       `json:"dueDate"`
	EMIAmount     decimal.Decimal `json:"emiAmount"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	Balance       decimal.Decimal `json:"balance"`
	Status        EntryStatus     `json:"status"`
	PaidDate      *time.Time      `json:"paidDate,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsPaid reports whether a payment has been posted against this entry.
func (e *RepaymentEntry) IsPaid() bool {
	return e.Status == EntryStatusPaid
}

// DeriveEntryStatus classifies a due date relative to an as-of date.
// A due date in the same calendar month as asOf is "due" even when the day
// has already passed; earlier months are "overdue"; later dates "upcoming".
func DeriveEntryStatus(dueDate, asOf time.Time) EntryStatus {
	if dueDate.Year() == asOf.Year() && dueDate.Month() == asOf.Month() {
		return EntryStatusDue
	}
	if dueDate.Before(asOf) {
		return EntryStatusOverdue
	}
	return EntryStatusUpcoming
}

// EffectiveStatus returns the entry status as of a given date. Paid is
// frozen: once a payment is posted the entry is never reclassified. Unpaid
// entries are re-derived from the due date so reports stay correct as time
// moves past the generation-time snapshot.
func (e *RepaymentEntry) EffectiveStatus(asOf time.Time) EntryStatus {
	if e.Status == EntryStatusPaid {
		return EntryStatusPaid
	}
	return DeriveEntryStatus(e.DueDate, asOf)
}

// EntryRepository persists repayment entries.
type EntryRepository interface {
	CreateBatchTx(tx interface{}, entries []*RepaymentEntry) error
	GetByPlanID(planID int32) ([]*RepaymentEntry, error)
	GetByPlanIDTx(tx interface{}, planID int32) ([]*RepaymentEntry, error)
	GetByPlanAndNumber(planID int32, installmentNo int32) (*RepaymentEntry, error)
	// MarkPaidTx flips an unpaid entry to paid inside a transaction. It
	// returns ErrInstallmentAlreadyPaid when the entry was paid before the
	// update and ErrInstallmentNotFound when it does not exist.
	MarkPaidTx(tx interface{}, planID int32, installmentNo int32, paidDate time.Time) (*RepaymentEntry, error)
	GetPaidBetween(from, to time.Time) ([]*RepaymentEntry, error)
}
