package service

import (
	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// MonthlyRate converts an annual percentage rate into a monthly fraction
// (12% -> 0.01).
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(twelve).Div(hundred)
}

// ComputeInstallmentAmount returns the fixed monthly installment (EMI) for a
// principal amortized over the given number of months.
//
// Zero-rate plans divide the principal evenly; otherwise the standard
// reducing-balance annuity formula applies:
//
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)
//
// The result is rounded to 2 decimal places with decimal.Round, which rounds
// half away from zero.
func ComputeInstallmentAmount(principal, annualRatePercent decimal.Decimal, months int) (decimal.Decimal, error) {
	if months < 1 {
		return decimal.Zero, domain.ErrTenureInvalid
	}
	n := decimal.NewFromInt(int64(months))
	if annualRatePercent.IsZero() {
		return principal.Div(n).Round(2), nil
	}
	r := MonthlyRate(annualRatePercent)
	compound := one.Add(r).Pow(n)
	return principal.Mul(r).Mul(compound).Div(compound.Sub(one)).Round(2), nil
}

// AmortizationTotals are the plan-level money figures fixed at creation.
type AmortizationTotals struct {
	FinancedAmount decimal.Decimal
	EMIAmount      decimal.Decimal
	TotalPayable   decimal.Decimal
	TotalInterest  decimal.Decimal
}

// ComputeAmortizationTotals derives the financed amount, EMI and plan totals
// from the sale parameters. Total payable is the down payment plus every
// installment; total interest is whatever exceeds the product price.
func ComputeAmortizationTotals(productPrice, downPayment, annualRatePercent decimal.Decimal, months int) (*AmortizationTotals, error) {
	financed := productPrice.Sub(downPayment)
	emi, err := ComputeInstallmentAmount(financed, annualRatePercent, months)
	if err != nil {
		return nil, err
	}
	totalPayable := downPayment.Add(emi.Mul(decimal.NewFromInt(int64(months)))).Round(2)
	return &AmortizationTotals{
		FinancedAmount: financed.Round(2),
		EMIAmount:      emi,
		TotalPayable:   totalPayable,
		TotalInterest:  totalPayable.Sub(productPrice).Round(2),
	}, nil
}
