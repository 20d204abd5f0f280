package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/kistipay/financing-engine/internal/domain"
	"github.com/kistipay/financing-engine/internal/websocket"
)

// MockCustomerRepository is a mock implementation of domain.CustomerRepository
type MockCustomerRepository struct {
	Customers map[int32]*domain.Customer
}

// NewMockCustomerRepository creates a new MockCustomerRepository
func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{Customers: make(map[int32]*domain.Customer)}
}

// GetByID retrieves a customer by ID
func (m *MockCustomerRepository) GetByID(id int32) (*domain.Customer, error) {
	if c, ok := m.Customers[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCustomerNotFound
}

// AddCustomer adds a customer to the mock repository (helper for tests)
func (m *MockCustomerRepository) AddCustomer(c *domain.Customer) {
	m.Customers[c.ID] = c
}

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	Products map[int32]*domain.Product
}

// NewMockProductRepository creates a new MockProductRepository
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{Products: make(map[int32]*domain.Product)}
}

// GetByID retrieves a product by ID
func (m *MockProductRepository) GetByID(id int32) (*domain.Product, error) {
	if p, ok := m.Products[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProductNotFound
}

// AddProduct adds a product to the mock repository (helper for tests)
func (m *MockProductRepository) AddProduct(p *domain.Product) {
	m.Products[p.ID] = p
}

// MockEntryRepository is a mock implementation of domain.EntryRepository
type MockEntryRepository struct {
	mu     sync.Mutex
	ByPlan map[int32][]*domain.RepaymentEntry
	NextID int32
}

// NewMockEntryRepository creates a new MockEntryRepository
func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		ByPlan: make(map[int32][]*domain.RepaymentEntry),
		NextID: 1,
	}
}

// CreateBatchTx stores a plan's schedule
func (m *MockEntryRepository) CreateBatchTx(tx interface{}, entries []*domain.RepaymentEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		e.ID = m.NextID
		m.NextID++
		m.ByPlan[e.PlanID] = append(m.ByPlan[e.PlanID], e)
	}
	return nil
}

// GetByPlanID retrieves all entries for a plan ordered by installment number
func (m *MockEntryRepository) GetByPlanID(planID int32) ([]*domain.RepaymentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append([]*domain.RepaymentEntry(nil), m.ByPlan[planID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].InstallmentNo < entries[j].InstallmentNo })
	return entries, nil
}

// GetByPlanIDTx retrieves all entries for a plan inside a transaction
func (m *MockEntryRepository) GetByPlanIDTx(tx interface{}, planID int32) ([]*domain.RepaymentEntry, error) {
	return m.GetByPlanID(planID)
}

// GetByPlanAndNumber retrieves a specific installment
func (m *MockEntryRepository) GetByPlanAndNumber(planID int32, installmentNo int32) (*domain.RepaymentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.ByPlan[planID] {
		if e.InstallmentNo == installmentNo {
			return e, nil
		}
	}
	return nil, domain.ErrInstallmentNotFound
}

// MarkPaidTx flips an unpaid entry to paid, enforcing the double-payment guard
func (m *MockEntryRepository) MarkPaidTx(tx interface{}, planID int32, installmentNo int32, paidDate time.Time) (*domain.RepaymentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.ByPlan[planID] {
		if e.InstallmentNo != installmentNo {
			continue
		}
		if e.Status == domain.EntryStatusPaid {
			return nil, domain.ErrInstallmentAlreadyPaid
		}
		e.Status = domain.EntryStatusPaid
		pd := paidDate
		e.PaidDate = &pd
		e.UpdatedAt = time.Now()
		return e, nil
	}
	return nil, domain.ErrInstallmentNotFound
}

// GetPaidBetween retrieves paid entries with a paid date inside [from, to)
func (m *MockEntryRepository) GetPaidBetween(from, to time.Time) ([]*domain.RepaymentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.RepaymentEntry
	for _, entries := range m.ByPlan {
		for _, e := range entries {
			if e.PaidDate == nil {
				continue
			}
			if !e.PaidDate.Before(from) && e.PaidDate.Before(to) {
				result = append(result, e)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaidDate.Before(*result[j].PaidDate) })
	return result, nil
}

// MockPlanRepository is a mock implementation of domain.PlanRepository.
// It shares an entry repository so CreateWithSchedule can persist both halves.
type MockPlanRepository struct {
	mu      sync.Mutex
	Plans   map[int32]*domain.InstallmentPlan
	Entries *MockEntryRepository
	NextID  int32

	// CreateErr simulates a storage failure; nothing is persisted when set.
	CreateErr error
}

// NewMockPlanRepository creates a new MockPlanRepository
func NewMockPlanRepository(entries *MockEntryRepository) *MockPlanRepository {
	return &MockPlanRepository{
		Plans:   make(map[int32]*domain.InstallmentPlan),
		Entries: entries,
		NextID:  1,
	}
}

// CreateWithSchedule persists a plan and its entries atomically
func (m *MockPlanRepository) CreateWithSchedule(plan *domain.InstallmentPlan, entries []*domain.RepaymentEntry) (*domain.InstallmentPlan, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	plan.ID = m.NextID
	m.NextID++
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = plan.CreatedAt
	m.Plans[plan.ID] = plan
	m.mu.Unlock()

	for _, e := range entries {
		e.PlanID = plan.ID
	}
	if err := m.Entries.CreateBatchTx(nil, entries); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetByID retrieves a plan by ID
func (m *MockPlanRepository) GetByID(id int32) (*domain.InstallmentPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Plans[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPlanNotFound
}

// List retrieves plans matching the filter, ordered by ID
func (m *MockPlanRepository) List(filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.InstallmentPlan
	for _, p := range m.Plans {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// LockTx loads a plan for update
func (m *MockPlanRepository) LockTx(tx interface{}, id int32) (*domain.InstallmentPlan, error) {
	return m.GetByID(id)
}

// UpdateAggregatesTx persists recomputed aggregate fields
func (m *MockPlanRepository) UpdateAggregatesTx(tx interface{}, plan *domain.InstallmentPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Plans[plan.ID]; !ok {
		return domain.ErrPlanNotFound
	}
	plan.UpdatedAt = time.Now()
	m.Plans[plan.ID] = plan
	return nil
}

// UpdateStatus transitions a plan's status
func (m *MockPlanRepository) UpdateStatus(id int32, status domain.PlanStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Plans[id]
	if !ok {
		return domain.ErrPlanNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// MockEventPublisher records published events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []websocket.Event
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// CountByType returns how many recorded events carry the given combined type
func (m *MockEventPublisher) CountByType(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.Events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}
