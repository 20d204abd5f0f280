package handler

import (
	"net/http"
	"time"

	"github.com/kistipay/financing-engine/internal/service"
	"github.com/kistipay/financing-engine/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ReportHandler handles dashboard and reporting HTTP requests
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// DashboardResponse represents the dashboard KPI set
type DashboardResponse struct {
	AsOf                string `json:"asOf"`
	TotalPlans          int    `json:"totalPlans"`
	ActivePlans         int    `json:"activePlans"`
	CompletedPlans      int    `json:"completedPlans"`
	DefaultedPlans      int    `json:"defaultedPlans"`
	CancelledPlans      int    `json:"cancelledPlans"`
	TotalFinanced       string `json:"totalFinanced"`
	TotalCollected      string `json:"totalCollected"`
	OutstandingBalance  string `json:"outstandingBalance"`
	OverdueAmount       string `json:"overdueAmount"`
	OverdueInstallments int    `json:"overdueInstallments"`
	CollectedThisMonth  string `json:"collectedThisMonth"`
	DueThisMonth        string `json:"dueThisMonth"`
}

// CollectionItemResponse represents a single collected payment
type CollectionItemResponse struct {
	PlanID        int32  `json:"planId"`
	PlanReference string `json:"planReference"`
	CustomerName  string `json:"customerName"`
	InstallmentNo int32  `json:"installmentNo"`
	Amount        string `json:"amount"`
	PaidDate      string `json:"paidDate"`
}

// CollectionReportResponse represents collections over a period
type CollectionReportResponse struct {
	From  string                   `json:"from"`
	To    string                   `json:"to"`
	Items []CollectionItemResponse `json:"items"`
	Total string                   `json:"total"`
}

// DefaulterItemResponse represents one plan with overdue installments
type DefaulterItemResponse struct {
	PlanID          int32  `json:"planId"`
	PlanReference   string `json:"planReference"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	OverdueCount    int    `json:"overdueCount"`
	OverdueAmount   string `json:"overdueAmount"`
	EarliestDueDate string `json:"earliestDueDate"`
}

// DefaulterReportResponse represents the defaulter report
type DefaulterReportResponse struct {
	AsOf  string                  `json:"asOf"`
	Items []DefaulterItemResponse `json:"items"`
	Total string                  `json:"total"`
}

// OutstandingItemResponse represents the remaining obligation of one plan
type OutstandingItemResponse struct {
	PlanID                int32  `json:"planId"`
	PlanReference         string `json:"planReference"`
	CustomerName          string `json:"customerName"`
	TotalPayable          string `json:"totalPayable"`
	CollectedSoFar        string `json:"collectedSoFar"`
	Outstanding           string `json:"outstanding"`
	RemainingInstallments int32  `json:"remainingInstallments"`
}

// OutstandingReportResponse represents the outstanding report
type OutstandingReportResponse struct {
	AsOf  string                    `json:"asOf"`
	Items []OutstandingItemResponse `json:"items"`
	Total string                    `json:"total"`
}

// parseAsOf reads the optional asOf query parameter, defaulting to today.
func parseAsOf(c echo.Context) (time.Time, error) {
	if param := c.QueryParam("asOf"); param != "" {
		return util.ParseDate(param)
	}
	return time.Now(), nil
}

// GetDashboard handles GET /api/v1/dashboard
func (h *ReportHandler) GetDashboard(c echo.Context) error {
	asOf, err := parseAsOf(c)
	if err != nil {
		return NewValidationError(c, "Invalid asOf date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	snap, err := h.reportService.GetDashboardSnapshot(asOf)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dashboard snapshot")
		return NewInternalError(c, "An unexpected error occurred")
	}

	return c.JSON(http.StatusOK, DashboardResponse{
		AsOf:                util.FormatDate(snap.AsOf),
		TotalPlans:          snap.TotalPlans,
		ActivePlans:         snap.ActivePlans,
		CompletedPlans:      snap.CompletedPlans,
		DefaultedPlans:      snap.DefaultedPlans,
		CancelledPlans:      snap.CancelledPlans,
		TotalFinanced:       snap.TotalFinanced.StringFixed(2),
		TotalCollected:      snap.TotalCollected.StringFixed(2),
		OutstandingBalance:  snap.OutstandingBalance.StringFixed(2),
		OverdueAmount:       snap.OverdueAmount.StringFixed(2),
		OverdueInstallments: snap.OverdueInstallments,
		CollectedThisMonth:  snap.CollectedThisMonth.StringFixed(2),
		DueThisMonth:        snap.DueThisMonth.StringFixed(2),
	})
}

// GetCollections handles GET /api/v1/reports/collections.
// Defaults to the current calendar month when no period is given.
func (h *ReportHandler) GetCollections(c echo.Context) error {
	from, to := util.MonthBounds(time.Now())
	if param := c.QueryParam("from"); param != "" {
		parsed, err := util.ParseDate(param)
		if err != nil {
			return NewValidationError(c, "Invalid from date", []ValidationError{
				{Field: "from", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		from = parsed
	}
	if param := c.QueryParam("to"); param != "" {
		parsed, err := util.ParseDate(param)
		if err != nil {
			return NewValidationError(c, "Invalid to date", []ValidationError{
				{Field: "to", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		to = parsed
	}
	if !from.Before(to) {
		return NewValidationError(c, "Invalid period", []ValidationError{
			{Field: "from", Message: "Must be before to"},
		})
	}

	report, err := h.reportService.GetCollectionReport(from, to)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build collection report")
		return NewInternalError(c, "An unexpected error occurred")
	}

	items := make([]CollectionItemResponse, len(report.Items))
	for i, item := range report.Items {
		items[i] = CollectionItemResponse{
			PlanID:        item.PlanID,
			PlanReference: item.PlanReference,
			CustomerName:  item.CustomerName,
			InstallmentNo: item.InstallmentNo,
			Amount:        item.Amount.StringFixed(2),
			PaidDate:      util.FormatDate(item.PaidDate),
		}
	}
	return c.JSON(http.StatusOK, CollectionReportResponse{
		From:  util.FormatDate(report.From),
		To:    util.FormatDate(report.To),
		Items: items,
		Total: report.Total.StringFixed(2),
	})
}

// GetDefaulters handles GET /api/v1/reports/defaulters
func (h *ReportHandler) GetDefaulters(c echo.Context) error {
	asOf, err := parseAsOf(c)
	if err != nil {
		return NewValidationError(c, "Invalid asOf date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	report, err := h.reportService.GetDefaulterReport(asOf)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build defaulter report")
		return NewInternalError(c, "An unexpected error occurred")
	}

	items := make([]DefaulterItemResponse, len(report.Items))
	for i, item := range report.Items {
		items[i] = DefaulterItemResponse{
			PlanID:          item.PlanID,
			PlanReference:   item.PlanReference,
			CustomerName:    item.CustomerName,
			CustomerPhone:   item.CustomerPhone,
			OverdueCount:    item.OverdueCount,
			OverdueAmount:   item.OverdueAmount.StringFixed(2),
			EarliestDueDate: util.FormatDate(item.EarliestDueDate),
		}
	}
	return c.JSON(http.StatusOK, DefaulterReportResponse{
		AsOf:  util.FormatDate(report.AsOf),
		Items: items,
		Total: report.Total.StringFixed(2),
	})
}

// GetOutstanding handles GET /api/v1/reports/outstanding
func (h *ReportHandler) GetOutstanding(c echo.Context) error {
	asOf, err := parseAsOf(c)
	if err != nil {
		return NewValidationError(c, "Invalid asOf date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	report, err := h.reportService.GetOutstandingReport(asOf)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build outstanding report")
		return NewInternalError(c, "An unexpected error occurred")
	}

	items := make([]OutstandingItemResponse, len(report.Items))
	for i, item := range report.Items {
		items[i] = OutstandingItemResponse{
			PlanID:                item.PlanID,
			PlanReference:         item.PlanReference,
			CustomerName:          item.CustomerName,
			TotalPayable:          item.TotalPayable.StringFixed(2),
			CollectedSoFar:        item.CollectedSoFar.StringFixed(2),
			Outstanding:           item.Outstanding.StringFixed(2),
			RemainingInstallments: item.RemainingInstallments,
		}
	}
	return c.JSON(http.StatusOK, OutstandingReportResponse{
		AsOf:  util.FormatDate(report.AsOf),
		Items: items,
		Total: report.Total.StringFixed(2),
	})
}
