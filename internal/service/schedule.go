package service

import (
	"time"

	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/util"
	"github.com/shopspring/decimal"
)

// GenerateSchedule produces the ordered repayment entries for a new plan.
// Due dates advance by calendar months from the start date. Interest for a
// period is charged on the running balance; the rest of the installment
// retires principal. The final period's principal is the remaining balance,
// so its principal+interest can differ from the EMI by the cents of rounding
// drift the earlier periods accumulated. Each period's status is derived
// against asOf, so a back-dated start can legitimately generate overdue
// entries.
func GenerateSchedule(financedAmount, annualRatePercent decimal.Decimal, tenureMonths int, startDate, asOf time.Time) ([]*domain.RepaymentEntry, error) {
	emi, err := ComputeInstallmentAmount(financedAmount, annualRatePercent, tenureMonths)
	if err != nil {
		return nil, err
	}

	rate := decimal.Zero
	if !annualRatePercent.IsZero() {
		rate = MonthlyRate(annualRatePercent)
	}

	balance := financedAmount
	entries := make([]*domain.RepaymentEntry, 0, tenureMonths)
	for i := 1; i <= tenureMonths; i++ {
		dueDate := util.AddMonths(startDate, i)
		interest := balance.Mul(rate).Round(2)
		principal := emi.Sub(interest).Round(2)
		if i == tenureMonths {
			// The final period retires whatever balance remains, absorbing
			// the cents of drift that per-period EMI rounding accumulates.
			principal = balance
		}

		balance = balance.Sub(principal).Round(2)
		if balance.IsNegative() {
			balance = decimal.Zero
		}

		entries = append(entries, &domain.RepaymentEntry{
			InstallmentNo: int32(i),
			DueDate:       dueDate,
			EMIAmount:     emi,
			Principal:     principal,
			Interest:      interest,
			Balance:       balance,
			Status:        domain.DeriveEntryStatus(dueDate, asOf),
		})
	}
	return entries, nil
}
