package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type reportFixture struct {
	*paymentFixture
	reports *ReportService
}

func newReportFixture() *reportFixture {
	f := newPaymentFixture()
	return &reportFixture{
		paymentFixture: f,
		reports:        NewReportService(f.plans, f.entries, f.customers),
	}
}

func (f *reportFixture) pay(t *testing.T, planID int32, installmentNo int32, paidDate time.Time) {
	t.Helper()
	if _, _, err := f.payments.MarkPaid(context.Background(), planID, installmentNo, &paidDate); err != nil {
		t.Fatalf("Installment %d: expected no error, got %v", installmentNo, err)
	}
}

func TestGetDashboardSnapshot_CountsAndMoney(t *testing.T) {
	f := newReportFixture()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	detail := f.createPlan(t) // start 2024-01-01, tenure 6
	cancelled := f.createPlan(t)
	if _, err := f.service.Cancel(cancelled.Plan.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Installment 1 (due Feb 1) paid on Feb 5; installments 2 (Mar 1)
	// and later remain unpaid.
	f.pay(t, detail.Plan.ID, 1, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))

	snap, err := f.reports.GetDashboardSnapshot(asOf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if snap.TotalPlans != 2 || snap.ActivePlans != 1 || snap.CancelledPlans != 1 {
		t.Errorf("Expected 2 total / 1 active / 1 cancelled, got %d / %d / %d",
			snap.TotalPlans, snap.ActivePlans, snap.CancelledPlans)
	}

	// Cancelled plans are excluded from the money KPIs.
	if !snap.TotalFinanced.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("Expected financed 45000, got %s", snap.TotalFinanced.String())
	}

	emi := detail.Plan.EMIAmount
	if !snap.TotalCollected.Equal(emi) {
		t.Errorf("Expected collected %s, got %s", emi.String(), snap.TotalCollected.String())
	}

	expectedOutstanding := detail.Plan.TotalPayable.Sub(detail.Plan.DownPayment).Sub(emi)
	if !snap.OutstandingBalance.Equal(expectedOutstanding) {
		t.Errorf("Expected outstanding %s, got %s", expectedOutstanding.String(), snap.OutstandingBalance.String())
	}

	// As of March 15 installment 2 (due March 1) is due this month, nothing
	// unpaid is overdue yet.
	if snap.OverdueInstallments != 0 {
		t.Errorf("Expected 0 overdue, got %d", snap.OverdueInstallments)
	}
	if !snap.DueThisMonth.Equal(emi) {
		t.Errorf("Expected due this month %s, got %s", emi.String(), snap.DueThisMonth.String())
	}
	if !snap.CollectedThisMonth.Equal(decimal.Zero) {
		t.Errorf("Expected nothing collected in March, got %s", snap.CollectedThisMonth.String())
	}
}

func TestGetDashboardSnapshot_OverdueAfterMonthPasses(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)

	// Nothing paid; as of May 15 installments due Feb 1, Mar 1 and Apr 1 are
	// overdue and May 1 is due.
	asOf := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	snap, err := f.reports.GetDashboardSnapshot(asOf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if snap.OverdueInstallments != 3 {
		t.Errorf("Expected 3 overdue, got %d", snap.OverdueInstallments)
	}
	expected := detail.Plan.EMIAmount.Mul(decimal.NewFromInt(3))
	if !snap.OverdueAmount.Equal(expected) {
		t.Errorf("Expected overdue amount %s, got %s", expected.String(), snap.OverdueAmount.String())
	}
}

func TestGetDashboardSnapshot_PaidEntriesStayPaid(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)
	f.pay(t, detail.Plan.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	// A year later the paid entry must not be counted overdue.
	snap, err := f.reports.GetDashboardSnapshot(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if snap.OverdueInstallments != 5 {
		t.Errorf("Expected 5 overdue (paid entry excluded), got %d", snap.OverdueInstallments)
	}
}

func TestGetCollectionReport_FiltersByPeriod(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)

	f.pay(t, detail.Plan.ID, 1, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	f.pay(t, detail.Plan.ID, 2, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	f.pay(t, detail.Plan.ID, 3, time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC))

	report, err := f.reports.GetCollectionReport(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Items) != 2 {
		t.Fatalf("Expected 2 collections in March, got %d", len(report.Items))
	}
	expected := detail.Plan.EMIAmount.Mul(decimal.NewFromInt(2))
	if !report.Total.Equal(expected) {
		t.Errorf("Expected total %s, got %s", expected.String(), report.Total.String())
	}
	for _, item := range report.Items {
		if item.CustomerName != "Rahim Uddin" {
			t.Errorf("Expected customer name resolved, got %q", item.CustomerName)
		}
		if item.PlanReference != detail.Plan.Reference {
			t.Errorf("Expected reference %s, got %s", detail.Plan.Reference, item.PlanReference)
		}
	}
}

func TestGetDefaulterReport(t *testing.T) {
	f := newReportFixture()
	current := f.createPlan(t)
	lapsed := f.createPlan(t)

	// The first plan is fully current up to April.
	f.pay(t, current.Plan.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	f.pay(t, current.Plan.ID, 2, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	f.pay(t, current.Plan.ID, 3, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	// The second plan only ever paid installment 1.
	f.pay(t, lapsed.Plan.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	asOf := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	report, err := f.reports.GetDefaulterReport(asOf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Items) != 1 {
		t.Fatalf("Expected 1 defaulter, got %d", len(report.Items))
	}
	item := report.Items[0]
	if item.PlanID != lapsed.Plan.ID {
		t.Errorf("Expected plan %d, got %d", lapsed.Plan.ID, item.PlanID)
	}
	// Installment 2 (due Mar 1) is overdue; installment 3 (due Apr 1) is due
	// this month, not yet overdue.
	if item.OverdueCount != 1 {
		t.Errorf("Expected 1 overdue installment, got %d", item.OverdueCount)
	}
	if !item.OverdueAmount.Equal(lapsed.Plan.EMIAmount) {
		t.Errorf("Expected overdue amount %s, got %s", lapsed.Plan.EMIAmount.String(), item.OverdueAmount.String())
	}
	if !item.EarliestDueDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected earliest due 2024-03-01, got %s", item.EarliestDueDate)
	}
	if item.CustomerPhone != "01711000000" {
		t.Errorf("Expected phone resolved, got %q", item.CustomerPhone)
	}
}

func TestGetDefaulterReport_ExcludesCancelled(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)
	if _, err := f.service.Cancel(detail.Plan.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	report, err := f.reports.GetDefaulterReport(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Items) != 0 {
		t.Errorf("Expected no defaulters, got %d", len(report.Items))
	}
}

func TestGetDefaulterReport_IncludesDefaultedPlans(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)
	if _, err := f.service.MarkDefaulted(detail.Plan.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	report, err := f.reports.GetDefaulterReport(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Items) != 1 {
		t.Fatalf("Expected 1 defaulter, got %d", len(report.Items))
	}
}

func TestGetOutstandingReport(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)
	other := f.createPlan(t)
	if _, err := f.service.Cancel(other.Plan.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	f.pay(t, detail.Plan.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	f.pay(t, detail.Plan.ID, 2, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	report, err := f.reports.GetOutstandingReport(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Items) != 1 {
		t.Fatalf("Expected 1 active plan, got %d", len(report.Items))
	}
	item := report.Items[0]
	collected := detail.Plan.EMIAmount.Mul(decimal.NewFromInt(2))
	if !item.CollectedSoFar.Equal(collected) {
		t.Errorf("Expected collected %s, got %s", collected.String(), item.CollectedSoFar.String())
	}
	expected := detail.Plan.TotalPayable.Sub(detail.Plan.DownPayment).Sub(collected)
	if !item.Outstanding.Equal(expected) {
		t.Errorf("Expected outstanding %s, got %s", expected.String(), item.Outstanding.String())
	}
	if item.RemainingInstallments != 4 {
		t.Errorf("Expected 4 remaining, got %d", item.RemainingInstallments)
	}
	if !report.Total.Equal(expected) {
		t.Errorf("Expected total %s, got %s", expected.String(), report.Total.String())
	}
}

func TestGetOutstandingReport_CompletedPlanVanishes(t *testing.T) {
	f := newReportFixture()
	detail := f.createPlan(t)
	paidDate := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for no := int32(1); no <= 6; no++ {
		f.pay(t, detail.Plan.ID, no, paidDate)
	}

	report, err := f.reports.GetOutstandingReport(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Items) != 0 {
		t.Errorf("Expected no outstanding plans, got %d", len(report.Items))
	}

	// A completed plan still owes nothing by the outstanding formula.
	plan, _ := f.plans.GetByID(detail.Plan.ID)
	collected := detail.Plan.EMIAmount.Mul(decimal.NewFromInt(6))
	residual := plan.TotalPayable.Sub(plan.DownPayment).Sub(collected)
	if !residual.Equal(decimal.Zero) {
		t.Errorf("Expected zero residual, got %s", residual.String())
	}
}
