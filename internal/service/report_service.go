package service

import (
	"time"

	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/util"
	"github.com/shopspring/decimal"
)

// ReportService computes read-only derived views over the plan/entry set.
// It never mutates state; every figure is recomputed on demand against an
// explicit as-of date.
type ReportService struct {
	planRepo     domain.PlanRepository
	entryRepo    domain.EntryRepository
	customerRepo domain.CustomerRepository
}

// NewReportService creates a new ReportService
func NewReportService(planRepo domain.PlanRepository, entryRepo domain.EntryRepository, customerRepo domain.CustomerRepository) *ReportService {
	return &ReportService{
		planRepo:     planRepo,
		entryRepo:    entryRepo,
		customerRepo: customerRepo,
	}
}

// GetDashboardSnapshot scans all plans and entries and returns the KPI set
// as of the given date.
func (s *ReportService) GetDashboardSnapshot(asOf time.Time) (*domain.DashboardSnapshot, error) {
	plans, err := s.planRepo.List(domain.PlanFilter{})
	if err != nil {
		return nil, err
	}

	snap := &domain.DashboardSnapshot{
		AsOf:               asOf,
		TotalFinanced:      decimal.Zero,
		TotalCollected:     decimal.Zero,
		OutstandingBalance: decimal.Zero,
		OverdueAmount:      decimal.Zero,
		CollectedThisMonth: decimal.Zero,
		DueThisMonth:       decimal.Zero,
	}
	snap.TotalPlans = len(plans)

	monthStart, monthEnd := util.MonthBounds(asOf)

	for _, plan := range plans {
		switch plan.Status {
		case domain.PlanStatusActive:
			snap.ActivePlans++
		case domain.PlanStatusCompleted:
			snap.CompletedPlans++
		case domain.PlanStatusDefaulted:
			snap.DefaultedPlans++
		case domain.PlanStatusCancelled:
			snap.CancelledPlans++
		}
		if plan.Status == domain.PlanStatusCancelled {
			continue
		}
		snap.TotalFinanced = snap.TotalFinanced.Add(plan.FinancedAmount)

		entries, err := s.entryRepo.GetByPlanID(plan.ID)
		if err != nil {
			return nil, err
		}

		collected := decimal.Zero
		for _, e := range entries {
			if e.IsPaid() {
				collected = collected.Add(e.EMIAmount)
				if e.PaidDate != nil && !e.PaidDate.Before(monthStart) && e.PaidDate.Before(monthEnd) {
					snap.CollectedThisMonth = snap.CollectedThisMonth.Add(e.EMIAmount)
				}
				continue
			}
			if util.SameMonth(e.DueDate, asOf) {
				snap.DueThisMonth = snap.DueThisMonth.Add(e.EMIAmount)
			}
			if e.EffectiveStatus(asOf) == domain.EntryStatusOverdue {
				snap.OverdueInstallments++
				snap.OverdueAmount = snap.OverdueAmount.Add(e.EMIAmount)
			}
		}
		snap.TotalCollected = snap.TotalCollected.Add(collected)

		if plan.Status == domain.PlanStatusActive {
			outstanding := plan.TotalPayable.Sub(plan.DownPayment).Sub(collected)
			snap.OutstandingBalance = snap.OutstandingBalance.Add(outstanding)
		}
	}

	return snap, nil
}

// GetCollectionReport lists every payment whose paid date falls inside
// [from, to) together with the period total.
func (s *ReportService) GetCollectionReport(from, to time.Time) (*domain.CollectionReport, error) {
	entries, err := s.entryRepo.GetPaidBetween(from, to)
	if err != nil {
		return nil, err
	}

	report := &domain.CollectionReport{From: from, To: to, Total: decimal.Zero}
	planCache := make(map[int32]*domain.InstallmentPlan)
	nameCache := make(map[int32]string)

	for _, e := range entries {
		plan, ok := planCache[e.PlanID]
		if !ok {
			plan, err = s.planRepo.GetByID(e.PlanID)
			if err != nil {
				return nil, err
			}
			planCache[e.PlanID] = plan
		}
		name, ok := nameCache[plan.CustomerID]
		if !ok {
			customer, err := s.customerRepo.GetByID(plan.CustomerID)
			if err != nil {
				return nil, err
			}
			name = customer.Name
			nameCache[plan.CustomerID] = name
		}

		report.Items = append(report.Items, domain.CollectionItem{
			PlanID:        e.PlanID,
			PlanReference: plan.Reference,
			CustomerName:  name,
			InstallmentNo: e.InstallmentNo,
			Amount:        e.EMIAmount,
			PaidDate:      *e.PaidDate,
		})
		report.Total = report.Total.Add(e.EMIAmount)
	}
	return report, nil
}

// GetDefaulterReport lists plans carrying at least one overdue installment
// as of the given date. Completed and cancelled plans never appear.
func (s *ReportService) GetDefaulterReport(asOf time.Time) (*domain.DefaulterReport, error) {
	plans, err := s.planRepo.List(domain.PlanFilter{})
	if err != nil {
		return nil, err
	}

	report := &domain.DefaulterReport{AsOf: asOf, Total: decimal.Zero}
	for _, plan := range plans {
		if plan.Status == domain.PlanStatusCompleted || plan.Status == domain.PlanStatusCancelled {
			continue
		}
		entries, err := s.entryRepo.GetByPlanID(plan.ID)
		if err != nil {
			return nil, err
		}

		overdueCount := 0
		overdueAmount := decimal.Zero
		var earliest time.Time
		for _, e := range entries {
			if e.EffectiveStatus(asOf) != domain.EntryStatusOverdue {
				continue
			}
			overdueCount++
			// EMI is paid-in-full per entry, so each unpaid overdue entry
			// owes its full installment amount.
			overdueAmount = overdueAmount.Add(e.EMIAmount)
			if earliest.IsZero() || e.DueDate.Before(earliest) {
				earliest = e.DueDate
			}
		}
		if overdueCount == 0 {
			continue
		}

		customer, err := s.customerRepo.GetByID(plan.CustomerID)
		if err != nil {
			return nil, err
		}
		report.Items = append(report.Items, domain.DefaulterItem{
			PlanID:          plan.ID,
			PlanReference:   plan.Reference,
			CustomerName:    customer.Name,
			CustomerPhone:   customer.Phone,
			OverdueCount:    overdueCount,
			OverdueAmount:   overdueAmount,
			EarliestDueDate: earliest,
		})
		report.Total = report.Total.Add(overdueAmount)
	}
	return report, nil
}

// GetOutstandingReport lists the remaining obligation of every active plan.
func (s *ReportService) GetOutstandingReport(asOf time.Time) (*domain.OutstandingReport, error) {
	active := domain.PlanStatusActive
	plans, err := s.planRepo.List(domain.PlanFilter{Status: &active})
	if err != nil {
		return nil, err
	}

	report := &domain.OutstandingReport{AsOf: asOf, Total: decimal.Zero}
	for _, plan := range plans {
		entries, err := s.entryRepo.GetByPlanID(plan.ID)
		if err != nil {
			return nil, err
		}

		collected := decimal.Zero
		for _, e := range entries {
			if e.IsPaid() {
				collected = collected.Add(e.EMIAmount)
			}
		}
		outstanding := plan.TotalPayable.Sub(plan.DownPayment).Sub(collected)

		customer, err := s.customerRepo.GetByID(plan.CustomerID)
		if err != nil {
			return nil, err
		}
		report.Items = append(report.Items, domain.OutstandingItem{
			PlanID:                plan.ID,
			PlanReference:         plan.Reference,
			CustomerName:          customer.Name,
			TotalPayable:          plan.TotalPayable,
			CollectedSoFar:        collected,
			Outstanding:           outstanding,
			RemainingInstallments: plan.RemainingInstallments,
		})
		report.Total = report.Total.Add(outstanding)
	}
	return report, nil
}
