package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/service"
	"github.com/kistipay/financing-engine/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type handlerFixture struct {
	e           *echo.Echo
	plans       *testutil.MockPlanRepository
	entries     *testutil.MockEntryRepository
	customers   *testutil.MockCustomerRepository
	planService *service.PlanService
	handler     *PlanHandler
}

func newHandlerFixture() *handlerFixture {
	entries := testutil.NewMockEntryRepository()
	plans := testutil.NewMockPlanRepository(entries)
	customers := testutil.NewMockCustomerRepository()
	products := testutil.NewMockProductRepository()

	customers.AddCustomer(&domain.Customer{ID: 1, Name: "Karim Ahmed", Phone: "01812000000", Address: "Chattogram"})
	products.AddProduct(&domain.Product{ID: 1, Name: "Motorcycle", Price: decimal.NewFromInt(150000), ImageURL: "moto.jpg"})

	planService := service.NewPlanService(plans, entries, customers, products)
	return &handlerFixture{
		e:           echo.New(),
		plans:       plans,
		entries:     entries,
		customers:   customers,
		planService: planService,
		handler:     NewPlanHandler(planService),
	}
}

func (f *handlerFixture) request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return f.e.NewContext(req, rec), rec
}

func TestCreatePlan_Success(t *testing.T) {
	f := newHandlerFixture()

	reqBody := `{
		"customerId": 1,
		"productId": 1,
		"downPayment": "30000",
		"interestRate": "12",
		"tenureMonths": 12,
		"startDate": "2024-01-15"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans", reqBody)

	if err := f.handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	var response PlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.FinancedAmount != "120000.00" {
		t.Errorf("Expected financed amount '120000.00', got %s", response.FinancedAmount)
	}
	if response.CustomerName != "Karim Ahmed" {
		t.Errorf("Expected customer name 'Karim Ahmed', got %s", response.CustomerName)
	}
	if response.ProductName != "Motorcycle" {
		t.Errorf("Expected product name 'Motorcycle', got %s", response.ProductName)
	}
	if response.Status != "active" {
		t.Errorf("Expected status 'active', got %s", response.Status)
	}
	if len(response.Schedule) != 12 {
		t.Errorf("Expected 12 schedule entries, got %d", len(response.Schedule))
	}
	if response.Schedule[0].DueDate != "2024-02-15" {
		t.Errorf("Expected first due date '2024-02-15', got %s", response.Schedule[0].DueDate)
	}
	if response.NextDueDate == nil || *response.NextDueDate != "2024-02-15" {
		t.Errorf("Expected next due date '2024-02-15', got %v", response.NextDueDate)
	}
	if response.Reference == "" {
		t.Error("Expected a generated reference")
	}
}

func TestCreatePlan_InvalidDownPayment(t *testing.T) {
	f := newHandlerFixture()

	reqBody := `{
		"customerId": 1,
		"productId": 1,
		"downPayment": "not-a-number",
		"interestRate": "12",
		"tenureMonths": 12,
		"startDate": "2024-01-15"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans", reqBody)

	if err := f.handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Type != ErrorTypeValidation {
		t.Errorf("Expected validation problem type, got %s", problem.Type)
	}
}

func TestCreatePlan_InvalidStartDate(t *testing.T) {
	f := newHandlerFixture()

	reqBody := `{
		"customerId": 1,
		"productId": 1,
		"downPayment": "30000",
		"interestRate": "12",
		"tenureMonths": 12,
		"startDate": "15/01/2024"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans", reqBody)

	if err := f.handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreatePlan_UnknownProduct(t *testing.T) {
	f := newHandlerFixture()

	reqBody := `{
		"customerId": 1,
		"productId": 99,
		"downPayment": "0",
		"interestRate": "12",
		"tenureMonths": 6,
		"startDate": "2024-01-15"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans", reqBody)

	if err := f.handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestCreatePlan_ZeroTenure(t *testing.T) {
	f := newHandlerFixture()

	reqBody := `{
		"customerId": 1,
		"productId": 1,
		"downPayment": "0",
		"interestRate": "12",
		"tenureMonths": 0,
		"startDate": "2024-01-15"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans", reqBody)

	if err := f.handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestPreviewPlan_Success(t *testing.T) {
	f := newHandlerFixture()

	reqBody := `{
		"customerId": 1,
		"productId": 1,
		"downPayment": "50000",
		"interestRate": "0",
		"tenureMonths": 10,
		"startDate": "2024-01-01"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans/preview", reqBody)

	if err := f.handler.PreviewPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response PreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	// Zero-rate: 100000 financed over 10 months, no interest
	if response.EMIAmount != "10000.00" {
		t.Errorf("Expected EMI '10000.00', got %s", response.EMIAmount)
	}
	if response.TotalInterest != "0.00" {
		t.Errorf("Expected zero interest, got %s", response.TotalInterest)
	}
	if len(f.plans.Plans) != 0 {
		t.Error("Preview must not persist a plan")
	}
}

func TestGetPlan_NotFound(t *testing.T) {
	f := newHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/plans/404", "")
	c.SetParamNames("id")
	c.SetParamValues("404")

	if err := f.handler.GetPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetPlan_InvalidID(t *testing.T) {
	f := newHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/plans/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := f.handler.GetPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetPlans_StatusFilter(t *testing.T) {
	f := newHandlerFixture()
	f.createTestPlan(t)

	c, rec := f.request(http.MethodGet, "/api/v1/plans?status=active", "")
	c.QueryParams().Set("status", "active")

	if err := f.handler.GetPlans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var responses []PlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &responses); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(responses) != 1 {
		t.Errorf("Expected 1 plan, got %d", len(responses))
	}
}

func TestGetPlans_InvalidStatusFilter(t *testing.T) {
	f := newHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/plans?status=bogus", "")
	c.QueryParams().Set("status", "bogus")

	if err := f.handler.GetPlans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCancelPlan_Success(t *testing.T) {
	f := newHandlerFixture()
	planID := f.createTestPlan(t)

	c, rec := f.request(http.MethodPost, "/api/v1/plans/1/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := f.handler.CancelPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response PlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "cancelled" {
		t.Errorf("Expected status 'cancelled', got %s", response.Status)
	}
	if response.ID != planID {
		t.Errorf("Expected plan %d, got %d", planID, response.ID)
	}
}

func TestCancelPlan_AlreadyCancelled(t *testing.T) {
	f := newHandlerFixture()
	f.createTestPlan(t)

	c, _ := f.request(http.MethodPost, "/api/v1/plans/1/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := f.handler.CancelPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	c2, rec2 := f.request(http.MethodPost, "/api/v1/plans/1/cancel", "")
	c2.SetParamNames("id")
	c2.SetParamValues("1")
	if err := f.handler.CancelPlan(c2); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec2.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec2.Code)
	}
}

func TestDefaultPlan_Success(t *testing.T) {
	f := newHandlerFixture()
	f.createTestPlan(t)

	c, rec := f.request(http.MethodPost, "/api/v1/plans/1/default", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := f.handler.DefaultPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response PlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "defaulted" {
		t.Errorf("Expected status 'defaulted', got %s", response.Status)
	}
}

func (f *handlerFixture) createTestPlan(t *testing.T) int32 {
	t.Helper()
	reqBody := `{
		"customerId": 1,
		"productId": 1,
		"downPayment": "30000",
		"interestRate": "12",
		"tenureMonths": 12,
		"startDate": "2024-01-15"
	}`
	c, rec := f.request(http.MethodPost, "/api/v1/plans", reqBody)
	if err := f.handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}
	var response PlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return response.ID
}
