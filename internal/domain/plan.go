package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanStatus is the lifecycle status of an installment plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusDefaulted PlanStatus = "defaulted"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// ParsePlanStatus converts a raw string into a PlanStatus, rejecting
// anything outside the closed set.
func ParsePlanStatus(s string) (PlanStatus, error) {
	switch PlanStatus(s) {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusDefaulted, PlanStatusCancelled:
		return PlanStatus(s), nil
	}
	return "", ErrStatusUnknown
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCompleted || s == PlanStatusCancelled
}

// InstallmentPlan is one financed sale: the amortization parameters fixed at
// creation plus mutable aggregate state maintained from its repayment entries.
// PaidInstallments, RemainingInstallments and NextDueDate are a materialized
// cache of entry state; entries are the source of truth.
type InstallmentPlan struct {
	ID         int32  `json:"id"`
	Reference  string `json:"reference"`
	CustomerID int32  `json:"customerId"`
	ProductID  int32  `json:"productId"`

	ProductPrice   decimal.Decimal `json:"productPrice"`
	DownPayment    decimal.Decimal `json:"downPayment"`
	FinancedAmount decimal.Decimal `json:"financedAmount"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	TenureMonths   int32           `json:"tenureMonths"`
	EMIAmount      decimal.Decimal `json:"emiAmount"`
	TotalPayable   decimal.Decimal `json:"totalPayable"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
	StartDate      time.Time       `json:"startDate"`

	Status                PlanStatus `json:"status"`
	PaidInstallments      int32      `json:"paidInstallments"`
	RemainingInstallments int32      `json:"remainingInstallments"`
	NextDueDate           *time.Time `json:"nextDueDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the creation-time parameters of a plan. Down payment
// exceeding the product price is deliberately allowed (see DESIGN.md).
func (p *InstallmentPlan) Validate() error {
	if p.CustomerID <= 0 {
		return ErrCustomerRequired
	}
	if p.ProductID <= 0 {
		return ErrProductRequired
	}
	if p.TenureMonths < 1 {
		return ErrTenureInvalid
	}
	if p.DownPayment.IsNegative() {
		return ErrDownPaymentNegative
	}
	if p.InterestRate.IsNegative() {
		return ErrInterestRateInvalid
	}
	return nil
}

// Recompute rebuilds the aggregate fields from the plan's entries. The only
// status transition it performs is active/defaulted -> completed when every
// installment is paid; cancelled and defaulted are set by other triggers.
func (p *InstallmentPlan) Recompute(entries []*RepaymentEntry) {
	paid := int32(0)
	var next *time.Time
	for _, e := range entries {
		if e.IsPaid() {
			paid++
			continue
		}
		if next == nil || e.DueDate.Before(*next) {
			due := e.DueDate
			next = &due
		}
	}
	p.PaidInstallments = paid
	p.RemainingInstallments = p.TenureMonths - paid
	p.NextDueDate = next
	if paid == p.TenureMonths && p.Status != PlanStatusCancelled {
		p.Status = PlanStatusCompleted
	}
}

// AggregatesConsistent reports whether the cached aggregate fields agree with
// the given entries. Used as a defensive check when loading a plan.
func (p *InstallmentPlan) AggregatesConsistent(entries []*RepaymentEntry) bool {
	paid := int32(0)
	for _, e := range entries {
		if e.IsPaid() {
			paid++
		}
	}
	if p.PaidInstallments != paid {
		return false
	}
	if p.PaidInstallments+p.RemainingInstallments != p.TenureMonths {
		return false
	}
	return true
}

// PlanFilter narrows ListPlans results. Nil fields match everything.
type PlanFilter struct {
	Status     *PlanStatus
	CustomerID *int32
}

// PlanRepository persists installment plans.
type PlanRepository interface {
	// CreateWithSchedule persists a plan and its full entry set atomically.
	// A plan must never exist without its schedule.
	CreateWithSchedule(plan *InstallmentPlan, entries []*RepaymentEntry) (*InstallmentPlan, error)
	GetByID(id int32) (*InstallmentPlan, error)
	List(filter PlanFilter) ([]*InstallmentPlan, error)
	// LockTx loads a plan inside a transaction, taking a row lock that
	// serializes concurrent aggregate updates for the same plan.
	LockTx(tx interface{}, id int32) (*InstallmentPlan, error)
	UpdateAggregatesTx(tx interface{}, plan *InstallmentPlan) error
	UpdateStatus(id int32, status PlanStatus) error
}
