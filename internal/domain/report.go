package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSnapshot is the KPI set shown on the storefront dashboard.
// All values are derived by scanning plans and entries as of a single date.
type DashboardSnapshot struct {
	AsOf time.Time `json:"asOf"`

	TotalPlans     int `json:"totalPlans"`
	ActivePlans    int `json:"activePlans"`
	CompletedPlans int `json:"completedPlans"`
	DefaultedPlans int `json:"defaultedPlans"`
	CancelledPlans int `json:"cancelledPlans"`

	TotalFinanced       decimal.Decimal `json:"totalFinanced"`
	TotalCollected      decimal.Decimal `json:"totalCollected"`
	OutstandingBalance  decimal.Decimal `json:"outstandingBalance"`
	OverdueAmount       decimal.Decimal `json:"overdueAmount"`
	OverdueInstallments int             `json:"overdueInstallments"`
	CollectedThisMonth  decimal.Decimal `json:"collectedThisMonth"`
	DueThisMonth        decimal.Decimal `json:"dueThisMonth"`
}

// CollectionItem is one posted payment inside a collection report period.
type CollectionItem struct {
	PlanID        int32           `json:"planId"`
	PlanReference string          `json:"planReference"`
	CustomerName  string          `json:"customerName"`
	InstallmentNo int32           `json:"installmentNo"`
	Amount        decimal.Decimal `json:"amount"`
	PaidDate      time.Time       `json:"paidDate"`
}

// CollectionReport lists payments whose paid date falls within a period.
type CollectionReport struct {
	From  time.Time        `json:"from"`
	To    time.Time        `json:"to"`
	Items []CollectionItem `json:"items"`
	Total decimal.Decimal  `json:"total"`
}

// DefaulterItem is one plan with overdue installments.
type DefaulterItem struct {
	PlanID          int32           `json:"planId"`
	PlanReference   string          `json:"planReference"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	OverdueCount    int             `json:"overdueCount"`
	OverdueAmount   decimal.Decimal `json:"overdueAmount"`
	EarliestDueDate time.Time       `json:"earliestDueDate"`
}

// DefaulterReport lists active plans with at least one overdue installment
// as of a given date.
type DefaulterReport struct {
	AsOf  time.Time       `json:"asOf"`
	Items []DefaulterItem `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// OutstandingItem is the remaining obligation of one active plan.
type OutstandingItem struct {
	PlanID                int32           `json:"planId"`
	PlanReference         string          `json:"planReference"`
	CustomerName          string          `json:"customerName"`
	TotalPayable          decimal.Decimal `json:"totalPayable"`
	CollectedSoFar        decimal.Decimal `json:"collectedSoFar"`
	Outstanding           decimal.Decimal `json:"outstanding"`
	RemainingInstallments int32           `json:"remainingInstallments"`
}

// OutstandingReport lists the outstanding balance of every active plan.
type OutstandingReport struct {
	AsOf  time.Time         `json:"asOf"`
	Items []OutstandingItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}
