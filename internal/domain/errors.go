package domain

import "errors"

// Domain errors
var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrInstallmentNotFound = errors.New("installment not found")

	ErrInstallmentAlreadyPaid = errors.New("installment already paid")

	ErrTenureInvalid       = errors.New("tenure must be at least 1 month")
	ErrDownPaymentNegative = errors.New("down payment must not be negative")
	ErrInterestRateInvalid = errors.New("interest rate must not be negative")
	ErrCustomerRequired    = errors.New("customer is required")
	ErrProductRequired     = errors.New("product is required")
	ErrPlanNotActive       = errors.New("plan is not active")
	ErrStatusUnknown       = errors.New("unknown status value")
)
