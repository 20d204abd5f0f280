package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/service"
	"github.com/kistipay/financing-engine/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PlanHandler handles installment plan HTTP requests
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlanRequest represents the create plan request body
type CreatePlanRequest struct {
	CustomerID   int32  `json:"customerId"`
	ProductID    int32  `json:"productId"`
	DownPayment  string `json:"downPayment"`
	InterestRate string `json:"interestRate"`
	TenureMonths int32  `json:"tenureMonths"`
	StartDate    string `json:"startDate"`
}

// EntryResponse represents one repayment schedule entry in API responses
type EntryResponse struct {
	InstallmentNo int32   `json:"installmentNo"`
	DueDate       string  `json:"dueDate"`
	EMIAmount     string  `json:"emiAmount"`
	Principal     string  `json:"principal"`
	Interest      string  `json:"interest"`
	Balance       string  `json:"balance"`
	Status        string  `json:"status"`
	PaidDate      *string `json:"paidDate,omitempty"`
}

// PlanResponse represents an installment plan in API responses
type PlanResponse struct {
	ID                    int32           `json:"id"`
	Reference             string          `json:"reference"`
	CustomerID            int32           `json:"customerId"`
	CustomerName          string          `json:"customerName"`
	CustomerPhone         string          `json:"customerPhone"`
	ProductID             int32           `json:"productId"`
	ProductName           string          `json:"productName"`
	ProductImageURL       string          `json:"productImageUrl,omitempty"`
	ProductPrice          string          `json:"productPrice"`
	DownPayment           string          `json:"downPayment"`
	FinancedAmount        string          `json:"financedAmount"`
	InterestRate          string          `json:"interestRate"`
	TenureMonths          int32           `json:"tenureMonths"`
	EMIAmount             string          `json:"emiAmount"`
	TotalPayable          string          `json:"totalPayable"`
	TotalInterest         string          `json:"totalInterest"`
	StartDate             string          `json:"startDate"`
	Status                string          `json:"status"`
	PaidInstallments      int32           `json:"paidInstallments"`
	RemainingInstallments int32           `json:"remainingInstallments"`
	NextDueDate           *string         `json:"nextDueDate,omitempty"`
	Schedule              []EntryResponse `json:"schedule"`
	CreatedAt             string          `json:"createdAt"`
	UpdatedAt             string          `json:"updatedAt"`
}

// PreviewResponse represents the calculated figures for a plan before creation
type PreviewResponse struct {
	FinancedAmount string          `json:"financedAmount"`
	EMIAmount      string          `json:"emiAmount"`
	TotalPayable   string          `json:"totalPayable"`
	TotalInterest  string          `json:"totalInterest"`
	Schedule       []EntryResponse `json:"schedule"`
}

func entryToResponse(e *domain.RepaymentEntry, asOf time.Time) EntryResponse {
	resp := EntryResponse{
		InstallmentNo: e.InstallmentNo,
		DueDate:       util.FormatDate(e.DueDate),
		EMIAmount:     e.EMIAmount.StringFixed(2),
		Principal:     e.Principal.StringFixed(2),
		Interest:      e.Interest.StringFixed(2),
		Balance:       e.Balance.StringFixed(2),
		Status:        string(e.EffectiveStatus(asOf)),
	}
	if e.PaidDate != nil {
		paid := util.FormatDate(*e.PaidDate)
		resp.PaidDate = &paid
	}
	return resp
}

func planToResponse(detail *service.PlanDetail, asOf time.Time) PlanResponse {
	plan := detail.Plan
	schedule := make([]EntryResponse, len(detail.Entries))
	for i, e := range detail.Entries {
		schedule[i] = entryToResponse(e, asOf)
	}

	resp := PlanResponse{
		ID:                    plan.ID,
		Reference:             plan.Reference,
		CustomerID:            plan.CustomerID,
		CustomerName:          detail.Customer.Name,
		CustomerPhone:         detail.Customer.Phone,
		ProductID:             plan.ProductID,
		ProductName:           detail.Product.Name,
		ProductImageURL:       detail.Product.ImageURL,
		ProductPrice:          plan.ProductPrice.StringFixed(2),
		DownPayment:           plan.DownPayment.StringFixed(2),
		FinancedAmount:        plan.FinancedAmount.StringFixed(2),
		InterestRate:          plan.InterestRate.String(),
		TenureMonths:          plan.TenureMonths,
		EMIAmount:             plan.EMIAmount.StringFixed(2),
		TotalPayable:          plan.TotalPayable.StringFixed(2),
		TotalInterest:         plan.TotalInterest.StringFixed(2),
		StartDate:             util.FormatDate(plan.StartDate),
		Status:                string(plan.Status),
		PaidInstallments:      plan.PaidInstallments,
		RemainingInstallments: plan.RemainingInstallments,
		Schedule:              schedule,
		CreatedAt:             plan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             plan.UpdatedAt.Format(time.RFC3339),
	}
	if plan.NextDueDate != nil {
		next := util.FormatDate(*plan.NextDueDate)
		resp.NextDueDate = &next
	}
	return resp
}

// parsePlanInput converts the wire request into service input. A non-nil
// ValidationError names the offending field; the caller renders it.
func parsePlanInput(req CreatePlanRequest) (service.CreatePlanInput, *ValidationError) {
	downPayment, err := decimal.NewFromString(req.DownPayment)
	if err != nil {
		return service.CreatePlanInput{}, &ValidationError{Field: "downPayment", Message: "Must be a valid decimal number"}
	}
	interestRate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return service.CreatePlanInput{}, &ValidationError{Field: "interestRate", Message: "Must be a valid decimal number"}
	}
	startDate, err := util.ParseDate(req.StartDate)
	if err != nil {
		return service.CreatePlanInput{}, &ValidationError{Field: "startDate", Message: "Must be in YYYY-MM-DD format"}
	}
	return service.CreatePlanInput{
		CustomerID:   req.CustomerID,
		ProductID:    req.ProductID,
		DownPayment:  downPayment,
		InterestRate: interestRate,
		TenureMonths: req.TenureMonths,
		StartDate:    startDate,
	}, nil
}

func planErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return NewNotFoundError(c, "Customer not found")
	case errors.Is(err, domain.ErrProductNotFound):
		return NewNotFoundError(c, "Product not found")
	case errors.Is(err, domain.ErrPlanNotFound):
		return NewNotFoundError(c, "Plan not found")
	case errors.Is(err, domain.ErrCustomerRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "customerId", Message: "Customer is required"},
		})
	case errors.Is(err, domain.ErrProductRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "productId", Message: "Product is required"},
		})
	case errors.Is(err, domain.ErrTenureInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "tenureMonths", Message: "Tenure must be at least 1 month"},
		})
	case errors.Is(err, domain.ErrDownPaymentNegative):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "downPayment", Message: "Down payment cannot be negative"},
		})
	case errors.Is(err, domain.ErrInterestRateInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "interestRate", Message: "Interest rate cannot be negative"},
		})
	case errors.Is(err, domain.ErrPlanNotActive):
		return NewConflictError(c, "Plan is not active")
	default:
		log.Error().Err(err).Msg("Plan operation failed")
		return NewInternalError(c, "An unexpected error occurred")
	}
}

// CreatePlan handles POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	var req CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, verr := parsePlanInput(req)
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	detail, err := h.planService.CreatePlan(input, time.Now())
	if err != nil {
		return planErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, planToResponse(detail, time.Now()))
}

// PreviewPlan handles POST /api/v1/plans/preview
func (h *PlanHandler) PreviewPlan(c echo.Context) error {
	var req CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, verr := parsePlanInput(req)
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	now := time.Now()
	preview, err := h.planService.PreviewPlan(input, now)
	if err != nil {
		return planErrorResponse(c, err)
	}

	schedule := make([]EntryResponse, len(preview.Schedule))
	for i, e := range preview.Schedule {
		schedule[i] = entryToResponse(e, now)
	}
	return c.JSON(http.StatusOK, PreviewResponse{
		FinancedAmount: preview.Totals.FinancedAmount.StringFixed(2),
		EMIAmount:      preview.Totals.EMIAmount.StringFixed(2),
		TotalPayable:   preview.Totals.TotalPayable.StringFixed(2),
		TotalInterest:  preview.Totals.TotalInterest.StringFixed(2),
		Schedule:       schedule,
	})
}

// GetPlans handles GET /api/v1/plans
func (h *PlanHandler) GetPlans(c echo.Context) error {
	var filter domain.PlanFilter

	if statusParam := c.QueryParam("status"); statusParam != "" {
		status, err := domain.ParsePlanStatus(statusParam)
		if err != nil {
			return NewValidationError(c, "Invalid status filter", []ValidationError{
				{Field: "status", Message: "Must be one of: active, completed, defaulted, cancelled"},
			})
		}
		filter.Status = &status
	}
	if customerParam := c.QueryParam("customerId"); customerParam != "" {
		customerID, err := strconv.ParseInt(customerParam, 10, 32)
		if err != nil {
			return NewValidationError(c, "Invalid customer filter", []ValidationError{
				{Field: "customerId", Message: "Must be a valid integer"},
			})
		}
		id := int32(customerID)
		filter.CustomerID = &id
	}

	details, err := h.planService.ListPlans(filter)
	if err != nil {
		return planErrorResponse(c, err)
	}

	now := time.Now()
	responses := make([]PlanResponse, len(details))
	for i, detail := range details {
		responses[i] = planToResponse(detail, now)
	}
	return c.JSON(http.StatusOK, responses)
}

// GetPlan handles GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	detail, err := h.planService.GetPlan(id)
	if err != nil {
		return planErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, planToResponse(detail, time.Now()))
}

// CancelPlan handles POST /api/v1/plans/:id/cancel
func (h *PlanHandler) CancelPlan(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	if _, err := h.planService.Cancel(id); err != nil {
		return planErrorResponse(c, err)
	}

	detail, err := h.planService.GetPlan(id)
	if err != nil {
		return planErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, planToResponse(detail, time.Now()))
}

// DefaultPlan handles POST /api/v1/plans/:id/default
func (h *PlanHandler) DefaultPlan(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	if _, err := h.planService.MarkDefaulted(id); err != nil {
		return planErrorResponse(c, err)
	}

	detail, err := h.planService.GetPlan(id)
	if err != nil {
		return planErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, planToResponse(detail, time.Now()))
}

func parseIDParam(c echo.Context, name string) (int32, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}
