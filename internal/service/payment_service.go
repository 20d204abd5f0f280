package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/websocket"
)

// PaymentService posts payments against individual installments. Posting a
// payment and recomputing the plan aggregates happen inside one transaction,
// so aggregates can never be observed out of step with entry state.
type PaymentService struct {
	pool           *pgxpool.Pool
	planRepo       domain.PlanRepository
	entryRepo      domain.EntryRepository
	eventPublisher websocket.EventPublisher
}

// NewPaymentService creates a new PaymentService. pool may be nil when the
// repositories are not transactional (tests).
func NewPaymentService(pool *pgxpool.Pool, planRepo domain.PlanRepository, entryRepo domain.EntryRepository) *PaymentService {
	return &PaymentService{
		pool:      pool,
		planRepo:  planRepo,
		entryRepo: entryRepo,
	}
}

// SetEventPublisher sets the publisher for dashboard events
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *PaymentService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// MarkPaid records a payment against one installment of a plan. The entry is
// frozen as paid, then the plan aggregates are recomputed from all entries.
// The plan row is locked for the duration, so concurrent payments against
// the same plan serialize; a second payment against the same installment
// fails with ErrInstallmentAlreadyPaid.
func (s *PaymentService) MarkPaid(ctx context.Context, planID int32, installmentNo int32, paidDate *time.Time) (*domain.RepaymentEntry, *domain.InstallmentPlan, error) {
	when := time.Now()
	if paidDate != nil {
		when = *paidDate
	}

	var txi interface{}
	var tx pgx.Tx
	if s.pool != nil {
		var err error
		tx, err = s.pool.Begin(ctx)
		if err != nil {
			return nil, nil, err
		}
		defer tx.Rollback(ctx)
		txi = tx
	}

	// Row lock serializes concurrent recomputes for the same plan.
	plan, err := s.planRepo.LockTx(txi, planID)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.entryRepo.MarkPaidTx(txi, planID, installmentNo, when)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.entryRepo.GetByPlanIDTx(txi, planID)
	if err != nil {
		return nil, nil, err
	}

	plan.Recompute(entries)
	if err := s.planRepo.UpdateAggregatesTx(txi, plan); err != nil {
		return nil, nil, err
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, nil, err
		}
	}

	s.publishEvent(websocket.InstallmentPaid(map[string]interface{}{
		"planId":           plan.ID,
		"reference":        plan.Reference,
		"installmentNo":    entry.InstallmentNo,
		"amount":           entry.EMIAmount.StringFixed(2),
		"paidDate":         when.Format("2006-01-02"),
		"paidInstallments": plan.PaidInstallments,
	}))
	if plan.Status == domain.PlanStatusCompleted {
		s.publishEvent(websocket.PlanCompleted(map[string]interface{}{
			"planId":    plan.ID,
			"reference": plan.Reference,
		}))
	}

	return entry, plan, nil
}
