package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/service"
	"github.com/kistipay/financing-engine/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// PaymentHandler handles installment payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	planService    *service.PlanService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService, planService *service.PlanService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		planService:    planService,
	}
}

// PayInstallmentRequest represents the pay installment request body.
// PaidDate is optional and defaults to today.
type PayInstallmentRequest struct {
	PaidDate *string `json:"paidDate,omitempty"`
}

// PayInstallmentResponse bundles the paid entry with the updated plan
type PayInstallmentResponse struct {
	Entry EntryResponse `json:"entry"`
	Plan  PlanResponse  `json:"plan"`
}

// PayInstallment handles POST /api/v1/plans/:id/installments/:no/pay
func (h *PaymentHandler) PayInstallment(c echo.Context) error {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}
	installmentNo, err := parseIDParam(c, "no")
	if err != nil {
		return NewValidationError(c, "Invalid installment number", nil)
	}

	var req PayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var paidDate *time.Time
	if req.PaidDate != nil && *req.PaidDate != "" {
		parsed, err := util.ParseDate(*req.PaidDate)
		if err != nil {
			return NewValidationError(c, "Invalid paid date", []ValidationError{
				{Field: "paidDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		paidDate = &parsed
	}

	entry, _, err := h.paymentService.MarkPaid(c.Request().Context(), planID, installmentNo, paidDate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPlanNotFound):
			return NewNotFoundError(c, "Plan not found")
		case errors.Is(err, domain.ErrInstallmentNotFound):
			return NewNotFoundError(c, "Installment not found")
		case errors.Is(err, domain.ErrInstallmentAlreadyPaid):
			return NewAlreadyPaidError(c, "Installment is already paid")
		default:
			log.Error().Err(err).
				Int32("plan_id", planID).
				Int32("installment_no", installmentNo).
				Msg("Failed to mark installment paid")
			return NewInternalError(c, "An unexpected error occurred")
		}
	}

	detail, err := h.planService.GetPlan(planID)
	if err != nil {
		return planErrorResponse(c, err)
	}

	now := time.Now()
	return c.JSON(http.StatusOK, PayInstallmentResponse{
		Entry: entryToResponse(entry, now),
		Plan:  planToResponse(detail, now),
	})
}
