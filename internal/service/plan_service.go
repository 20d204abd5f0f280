package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PlanService owns the installment plan lifecycle: creation, status
// transitions and aggregate maintenance.
type PlanService struct {
	planRepo       domain.PlanRepository
	entryRepo      domain.EntryRepository
	customerRepo   domain.CustomerRepository
	productRepo    domain.ProductRepository
	eventPublisher websocket.EventPublisher
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo domain.PlanRepository, entryRepo domain.EntryRepository, customerRepo domain.CustomerRepository, productRepo domain.ProductRepository) *PlanService {
	return &PlanService{
		planRepo:     planRepo,
		entryRepo:    entryRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
	}
}

// SetEventPublisher sets the publisher for dashboard events
func (s *PlanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *PlanService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// CreatePlanInput contains input for creating a plan
type CreatePlanInput struct {
	CustomerID   int32
	ProductID    int32
	DownPayment  decimal.Decimal
	InterestRate decimal.Decimal
	TenureMonths int32
	StartDate    time.Time
}

// PlanDetail bundles a plan with its schedule and the referenced parties.
type PlanDetail struct {
	Plan     *domain.InstallmentPlan
	Entries  []*domain.RepaymentEntry
	Customer *domain.Customer
	Product  *domain.Product
}

// CreatePlan validates the referenced customer and product, computes the
// amortization figures, generates the full repayment schedule and persists
// plan plus schedule as one atomic unit. Statuses in the generated schedule
// are derived against asOf.
func (s *PlanService) CreatePlan(input CreatePlanInput, asOf time.Time) (*PlanDetail, error) {
	plan := &domain.InstallmentPlan{
		CustomerID:   input.CustomerID,
		ProductID:    input.ProductID,
		DownPayment:  input.DownPayment,
		InterestRate: input.InterestRate,
		TenureMonths: input.TenureMonths,
		StartDate:    input.StartDate,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(input.CustomerID)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}

	totals, err := ComputeAmortizationTotals(product.Price, input.DownPayment, input.InterestRate, int(input.TenureMonths))
	if err != nil {
		return nil, err
	}

	entries, err := GenerateSchedule(totals.FinancedAmount, input.InterestRate, int(input.TenureMonths), input.StartDate, asOf)
	if err != nil {
		return nil, err
	}

	plan.Reference = uuid.NewString()
	plan.ProductPrice = product.Price
	plan.FinancedAmount = totals.FinancedAmount
	plan.EMIAmount = totals.EMIAmount
	plan.TotalPayable = totals.TotalPayable
	plan.TotalInterest = totals.TotalInterest
	plan.Status = domain.PlanStatusActive
	plan.PaidInstallments = 0
	plan.RemainingInstallments = input.TenureMonths
	firstDue := entries[0].DueDate
	plan.NextDueDate = &firstDue

	created, err := s.planRepo.CreateWithSchedule(plan, entries)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.PlanCreated(map[string]interface{}{
		"planId":    created.ID,
		"reference": created.Reference,
		"emiAmount": created.EMIAmount.StringFixed(2),
		"tenure":    created.TenureMonths,
	}))

	return &PlanDetail{Plan: created, Entries: entries, Customer: customer, Product: product}, nil
}

// PlanPreview contains the calculated values for a plan without persisting it
type PlanPreview struct {
	Totals   AmortizationTotals
	Schedule []*domain.RepaymentEntry
}

// PreviewPlan computes the amortization figures and schedule for the given
// sale parameters without creating anything.
func (s *PlanService) PreviewPlan(input CreatePlanInput, asOf time.Time) (*PlanPreview, error) {
	plan := &domain.InstallmentPlan{
		CustomerID:   input.CustomerID,
		ProductID:    input.ProductID,
		DownPayment:  input.DownPayment,
		InterestRate: input.InterestRate,
		TenureMonths: input.TenureMonths,
		StartDate:    input.StartDate,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}

	totals, err := ComputeAmortizationTotals(product.Price, input.DownPayment, input.InterestRate, int(input.TenureMonths))
	if err != nil {
		return nil, err
	}
	entries, err := GenerateSchedule(totals.FinancedAmount, input.InterestRate, int(input.TenureMonths), input.StartDate, asOf)
	if err != nil {
		return nil, err
	}

	return &PlanPreview{Totals: *totals, Schedule: entries}, nil
}

// GetPlan loads a plan with its schedule and parties. Cached aggregates are
// verified against the entries and rebuilt when stale; entries are the
// source of truth.
func (s *PlanService) GetPlan(id int32) (*PlanDetail, error) {
	plan, err := s.planRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.loadDetail(plan)
}

// ListPlans retrieves all plans matching the filter, with schedules and parties
func (s *PlanService) ListPlans(filter domain.PlanFilter) ([]*PlanDetail, error) {
	plans, err := s.planRepo.List(filter)
	if err != nil {
		return nil, err
	}
	details := make([]*PlanDetail, 0, len(plans))
	for _, plan := range plans {
		detail, err := s.loadDetail(plan)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *PlanService) loadDetail(plan *domain.InstallmentPlan) (*PlanDetail, error) {
	entries, err := s.entryRepo.GetByPlanID(plan.ID)
	if err != nil {
		return nil, err
	}
	if !plan.AggregatesConsistent(entries) {
		log.Warn().
			Int32("plan_id", plan.ID).
			Int32("paid_installments", plan.PaidInstallments).
			Msg("Plan aggregates stale, rebuilding from entries")
		plan.Recompute(entries)
	}

	customer, err := s.customerRepo.GetByID(plan.CustomerID)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(plan.ProductID)
	if err != nil {
		return nil, err
	}
	return &PlanDetail{Plan: plan, Entries: entries, Customer: customer, Product: product}, nil
}

// Cancel transitions an active plan to cancelled. Cancelled is terminal and
// entries are left untouched.
func (s *PlanService) Cancel(id int32) (*domain.InstallmentPlan, error) {
	return s.transition(id, domain.PlanStatusCancelled)
}

// MarkDefaulted transitions an active plan to defaulted. The trigger for
// default lives outside the engine (e.g. a collections job); the engine only
// records and preserves the state.
func (s *PlanService) MarkDefaulted(id int32) (*domain.InstallmentPlan, error) {
	return s.transition(id, domain.PlanStatusDefaulted)
}

func (s *PlanService) transition(id int32, target domain.PlanStatus) (*domain.InstallmentPlan, error) {
	plan, err := s.planRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if plan.Status != domain.PlanStatusActive {
		return nil, domain.ErrPlanNotActive
	}
	if err := s.planRepo.UpdateStatus(id, target); err != nil {
		return nil, err
	}
	plan.Status = target

	payload := map[string]interface{}{"planId": plan.ID, "reference": plan.Reference}
	switch target {
	case domain.PlanStatusCancelled:
		s.publishEvent(websocket.PlanCancelled(payload))
	case domain.PlanStatusDefaulted:
		s.publishEvent(websocket.PlanDefaulted(payload))
	}
	return plan, nil
}
