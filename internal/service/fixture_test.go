package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/datawarehouse"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/render"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/storage"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixture wires every service against one in-memory database with a frozen clock
type fixture struct {
	db    *gorm.DB
	cache *memStore
	erp   *fakeCustomers

	clients      *service.ClientService
	schedules    *service.ScheduleService
	investors    *service.InvestorService
	developments *service.DevelopmentService
	payments     *service.PaymentService
	numbers      *service.NumberSequenceService
	orders       *service.OrderService
	leads        *service.LeadService
	income       *service.IncomeService
	notices      *service.NoticeService
	audit        *service.AuditLogService
	store        storage.Storage
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	calendar := service.NewFixedCalendar(today.Add(12 * time.Hour))

	clientRepo := repository.NewClientRepository(db)
	developmentRepo := repository.NewDevelopmentRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	serviceOrderRepo := repository.NewServiceOrderRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	numberRepo := repository.NewNumberSequenceRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	f := &fixture{db: db, cache: newMemStore(), erp: &fakeCustomers{enabled: true}}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	renderer, err := render.New(render.Issuer{Name: "FieldOps Servicios"})
	require.NoError(t, err)
	f.store = store

	f.clients = service.NewClientService(clientRepo, f.erp, logger)
	f.schedules = service.NewScheduleService(db, developmentRepo, paymentRepo, serviceOrderRepo, calendar, logger)
	f.investors = service.NewInvestorService(loanRepo, paymentRepo, f.cache, time.Minute, calendar, logger)
	f.developments = service.NewDevelopmentService(db, developmentRepo, loanRepo, clientRepo, paymentRepo, orderRepo, f.schedules, f.investors, calendar, logger)
	f.payments = service.NewPaymentService(db, paymentRepo, developmentRepo, loanRepo, incomeRepo, f.investors, "development_fee", calendar, logger)
	f.numbers = service.NewNumberSequenceService(numberRepo, "ORD", calendar, logger)
	f.orders = service.NewOrderService(db, orderRepo, clientRepo, developmentRepo, serviceOrderRepo, f.numbers, 7, calendar, logger)
	f.leads = service.NewLeadService(db, leadRepo, clientRepo, f.developments, f.investors, calendar, logger)
	f.income = service.NewIncomeService(incomeRepo, logger)
	f.notices = service.NewNoticeService(paymentRepo, developmentRepo, f.investors, renderer, store, calendar, logger)
	f.audit = service.NewAuditLogService(auditRepo, calendar, logger)
	return f
}

// userCtx is a request context carrying an authenticated staff member
func userCtx() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.MustParse("7f1c2a9e-0b5d-4f43-9a51-3c2d1e0f4b6a"),
		DisplayName: "Laura Méndez",
		Email:       "laura@fieldops.test",
		Roles:       []domain.UserRoleType{domain.RoleManager},
	})
}

// investorRequest is 6 months of 3000 against 9000 at 20%: three recovery
// payments followed by three profit payments of 600
func investorRequest(clientID *uuid.UUID) *domain.CreateDevelopmentRequest {
	return &domain.CreateDevelopmentRequest{
		Name:                  "Residencial Los Pinos",
		Address:               "Av. Patria 455",
		ClientID:              clientID,
		ContactName:           "Comité Los Pinos",
		ContractStartDate:     "2026-01-15",
		DurationMonths:        6,
		MonthlyPayment:        testutil.Dec("3000"),
		PaymentDay:            10,
		ServiceDay:            20,
		HasInvestor:           true,
		InvestorName:          "Inversiones Norte",
		InvestorAmount:        testutil.Dec("9000"),
		InvestorProfitPercent: testutil.Dec("20"),
	}
}

func (f *fixture) createDevelopment(t *testing.T, req *domain.CreateDevelopmentRequest) *domain.DevelopmentDTO {
	t.Helper()
	dev, err := f.developments.Create(userCtx(), req)
	require.NoError(t, err)
	return dev
}

func (f *fixture) schedule(t *testing.T, developmentID uuid.UUID) *domain.DevelopmentScheduleDTO {
	t.Helper()
	schedule, err := f.schedules.GetSchedule(context.Background(), developmentID)
	require.NoError(t, err)
	return schedule
}

func (f *fixture) collect(t *testing.T, paymentID uuid.UUID, paidAt string) *domain.PaymentCollectionDTO {
	t.Helper()
	result, err := f.payments.Collect(userCtx(), paymentID, &domain.CollectPaymentRequest{
		PaidAt:        paidAt,
		PaymentMethod: domain.PaymentMethodTransfer,
		Reference:     "SPEI-" + paidAt,
	})
	require.NoError(t, err)
	return result
}

// memStore is an in-process cache.Store
type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type fakeCustomers struct {
	enabled   bool
	customers []datawarehouse.Customer
}

func (f *fakeCustomers) IsEnabled() bool { return f.enabled }

func (f *fakeCustomers) ListCustomers(context.Context) ([]datawarehouse.Customer, error) {
	return f.customers, nil
}
