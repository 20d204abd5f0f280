package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kistipay/financing-engine/internal/domain"
)

const entryColumns = `id, plan_id, installment_no, due_date, emi_amount, principal,
	interest, balance, status, paid_date, created_at, updated_at`

// EntryRepository implements domain.EntryRepository using PostgreSQL
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// CreateBatchTx inserts a plan's full schedule within a transaction
func (r *EntryRepository) CreateBatchTx(tx interface{}, entries []*domain.RepaymentEntry) error {
	ctx := context.Background()
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return errors.New("invalid transaction type")
	}
	return r.createBatch(ctx, pgxTx, entries)
}

func (r *EntryRepository) createBatch(ctx context.Context, q dbtx, entries []*domain.RepaymentEntry) error {
	for _, e := range entries {
		emiAmount, err := decimalToPgNumeric(e.EMIAmount)
		if err != nil {
			return err
		}
		principal, err := decimalToPgNumeric(e.Principal)
		if err != nil {
			return err
		}
		interest, err := decimalToPgNumeric(e.Interest)
		if err != nil {
			return err
		}
		balance, err := decimalToPgNumeric(e.Balance)
		if err != nil {
			return err
		}

		row := q.QueryRow(ctx, `
			INSERT INTO repayment_entries (
				plan_id, installment_no, due_date, emi_amount, principal,
				interest, balance, status, paid_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			e.PlanID, e.InstallmentNo, timeToPgDate(e.DueDate), emiAmount, principal,
			interest, balance, string(e.Status), timePtrToPgDate(e.PaidDate),
		)
		if err := row.Scan(&e.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetByPlanID retrieves all entries for a plan ordered by installment number
func (r *EntryRepository) GetByPlanID(planID int32) ([]*domain.RepaymentEntry, error) {
	ctx := context.Background()
	return r.getByPlanID(ctx, r.pool, planID)
}

// GetByPlanIDTx retrieves all entries for a plan inside a transaction
func (r *EntryRepository) GetByPlanIDTx(tx interface{}, planID int32) ([]*domain.RepaymentEntry, error) {
	ctx := context.Background()
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, errors.New("invalid transaction type")
	}
	return r.getByPlanID(ctx, pgxTx, planID)
}

func (r *EntryRepository) getByPlanID(ctx context.Context, q dbtx, planID int32) ([]*domain.RepaymentEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT `+entryColumns+`
		FROM repayment_entries
		WHERE plan_id = $1
		ORDER BY installment_no`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByPlanAndNumber retrieves a specific installment of a plan
func (r *EntryRepository) GetByPlanAndNumber(planID int32, installmentNo int32) (*domain.RepaymentEntry, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM repayment_entries
		WHERE plan_id = $1 AND installment_no = $2`, planID, installmentNo)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstallmentNotFound
		}
		return nil, err
	}
	return entry, nil
}

// MarkPaidTx flips an unpaid entry to paid within a transaction. The
// conditional UPDATE is the double-payment guard: a concurrent payment that
// lost the race matches zero rows, and the follow-up existence check decides
// between already-paid and not-found.
func (r *EntryRepository) MarkPaidTx(tx interface{}, planID int32, installmentNo int32, paidDate time.Time) (*domain.RepaymentEntry, error) {
	ctx := context.Background()
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, errors.New("invalid transaction type")
	}

	row := pgxTx.QueryRow(ctx, `
		UPDATE repayment_entries
		SET status = 'paid', paid_date = $3, updated_at = NOW()
		WHERE plan_id = $1 AND installment_no = $2 AND status <> 'paid'
		RETURNING `+entryColumns,
		planID, installmentNo, timeToPgDate(paidDate),
	)
	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	err = pgxTx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM repayment_entries WHERE plan_id = $1 AND installment_no = $2
		)`, planID, installmentNo).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrInstallmentAlreadyPaid
	}
	return nil, domain.ErrInstallmentNotFound
}

// GetPaidBetween retrieves paid entries with a paid date inside [from, to),
// ordered by paid date
func (r *EntryRepository) GetPaidBetween(from, to time.Time) ([]*domain.RepaymentEntry, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM repayment_entries
		WHERE status = 'paid' AND paid_date >= $1 AND paid_date < $2
		ORDER BY paid_date, plan_id, installment_no`,
		timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.RepaymentEntry, error) {
	var result []*domain.RepaymentEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.RepaymentEntry, error) {
	var e domain.RepaymentEntry
	var emiAmount, principal, interest, balance pgtype.Numeric
	var dueDate, paidDate pgtype.Date
	var status string
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&e.ID, &e.PlanID, &e.InstallmentNo, &dueDate, &emiAmount, &principal,
		&interest, &balance, &status, &paidDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EMIAmount = pgNumericToDecimal(emiAmount)
	e.Principal = pgNumericToDecimal(principal)
	e.Interest = pgNumericToDecimal(interest)
	e.Balance = pgNumericToDecimal(balance)
	e.DueDate = dueDate.Time
	e.PaidDate = pgDateToTimePtr(paidDate)
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time

	parsed, err := domain.ParseEntryStatus(status)
	if err != nil {
		return nil, err
	}
	e.Status = parsed

	return &e, nil
}
