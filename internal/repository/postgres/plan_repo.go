package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kistipay/financing-engine/internal/domain"
)

const planColumns = `id, reference, customer_id, product_id, product_price, down_payment,
	financed_amount, interest_rate, tenure_months, emi_amount, total_payable, total_interest,
	start_date, status, paid_installments, remaining_installments, next_due_date,
	created_at, updated_at`

// PlanRepository implements domain.PlanRepository using PostgreSQL
type PlanRepository struct {
	pool    *pgxpool.Pool
	entries *EntryRepository
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(pool *pgxpool.Pool, entries *EntryRepository) *PlanRepository {
	return &PlanRepository{
		pool:    pool,
		entries: entries,
	}
}

// CreateWithSchedule inserts a plan and its full repayment schedule in one
// transaction. Either everything lands or nothing does.
func (r *PlanRepository) CreateWithSchedule(plan *domain.InstallmentPlan, entries []*domain.RepaymentEntry) (*domain.InstallmentPlan, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := r.createPlan(ctx, tx, plan)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		e.PlanID = created.ID
	}
	if err := r.entries.createBatch(ctx, tx, entries); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PlanRepository) createPlan(ctx context.Context, q dbtx, plan *domain.InstallmentPlan) (*domain.InstallmentPlan, error) {
	productPrice, err := decimalToPgNumeric(plan.ProductPrice)
	if err != nil {
		return nil, err
	}
	downPayment, err := decimalToPgNumeric(plan.DownPayment)
	if err != nil {
		return nil, err
	}
	financedAmount, err := decimalToPgNumeric(plan.FinancedAmount)
	if err != nil {
		return nil, err
	}
	interestRate, err := decimalToPgNumeric(plan.InterestRate)
	if err != nil {
		return nil, err
	}
	emiAmount, err := decimalToPgNumeric(plan.EMIAmount)
	if err != nil {
		return nil, err
	}
	totalPayable, err := decimalToPgNumeric(plan.TotalPayable)
	if err != nil {
		return nil, err
	}
	totalInterest, err := decimalToPgNumeric(plan.TotalInterest)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `
		INSERT INTO installment_plans (
			reference, customer_id, product_id, product_price, down_payment,
			financed_amount, interest_rate, tenure_months, emi_amount,
			total_payable, total_interest, start_date, status,
			paid_installments, remaining_installments, next_due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+planColumns,
		plan.Reference, plan.CustomerID, plan.ProductID, productPrice, downPayment,
		financedAmount, interestRate, plan.TenureMonths, emiAmount,
		totalPayable, totalInterest, timeToPgDate(plan.StartDate), string(plan.Status),
		plan.PaidInstallments, plan.RemainingInstallments, timePtrToPgDate(plan.NextDueDate),
	)
	return scanPlan(row)
}

// GetByID retrieves a plan by its ID
func (r *PlanRepository) GetByID(id int32) (*domain.InstallmentPlan, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM installment_plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// List retrieves plans matching the filter, ordered by ID
func (r *PlanRepository) List(filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	ctx := context.Background()

	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += ` AND status = $1`
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		if len(args) == 1 {
			query += ` AND customer_id = $1`
		} else {
			query += ` AND customer_id = $2`
		}
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.InstallmentPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, plan)
	}
	return result, rows.Err()
}

// LockTx loads a plan with FOR UPDATE so concurrent payments against the
// same plan serialize on the row lock.
func (r *PlanRepository) LockTx(tx interface{}, id int32) (*domain.InstallmentPlan, error) {
	ctx := context.Background()
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, errors.New("invalid transaction type")
	}
	row := pgxTx.QueryRow(ctx, `SELECT `+planColumns+` FROM installment_plans WHERE id = $1 FOR UPDATE`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// UpdateAggregatesTx persists recomputed aggregate fields within a transaction
func (r *PlanRepository) UpdateAggregatesTx(tx interface{}, plan *domain.InstallmentPlan) error {
	ctx := context.Background()
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return errors.New("invalid transaction type")
	}
	tag, err := pgxTx.Exec(ctx, `
		UPDATE installment_plans
		SET status = $2,
			paid_installments = $3,
			remaining_installments = $4,
			next_due_date = $5,
			updated_at = NOW()
		WHERE id = $1`,
		plan.ID, string(plan.Status), plan.PaidInstallments, plan.RemainingInstallments,
		timePtrToPgDate(plan.NextDueDate),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// UpdateStatus transitions a plan's status
func (r *PlanRepository) UpdateStatus(id int32, status domain.PlanStatus) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		UPDATE installment_plans SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*domain.InstallmentPlan, error) {
	var p domain.InstallmentPlan
	var productPrice, downPayment, financedAmount, interestRate pgtype.Numeric
	var emiAmount, totalPayable, totalInterest pgtype.Numeric
	var startDate, nextDueDate pgtype.Date
	var status string
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&p.ID, &p.Reference, &p.CustomerID, &p.ProductID, &productPrice, &downPayment,
		&financedAmount, &interestRate, &p.TenureMonths, &emiAmount, &totalPayable, &totalInterest,
		&startDate, &status, &p.PaidInstallments, &p.RemainingInstallments, &nextDueDate,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ProductPrice = pgNumericToDecimal(productPrice)
	p.DownPayment = pgNumericToDecimal(downPayment)
	p.FinancedAmount = pgNumericToDecimal(financedAmount)
	p.InterestRate = pgNumericToDecimal(interestRate)
	p.EMIAmount = pgNumericToDecimal(emiAmount)
	p.TotalPayable = pgNumericToDecimal(totalPayable)
	p.TotalInterest = pgNumericToDecimal(totalInterest)
	p.StartDate = startDate.Time
	p.NextDueDate = pgDateToTimePtr(nextDueDate)
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	parsed, err := domain.ParsePlanStatus(status)
	if err != nil {
		return nil, err
	}
	p.Status = parsed

	return &p, nil
}
