package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Brownie44l1/lumistore/internal/models"
)

// ==============================================
// MOCK TRANSACTION
// ==============================================

type MockTx struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	mu         sync.Mutex
	Committed  bool
	RolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	m.mu.Lock()
	m.Committed = true
	m.mu.Unlock()
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	m.mu.Lock()
	if !m.Committed {
		m.RolledBack = true
	}
	m.mu.Unlock()
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// Implement other pgx.Tx methods as no-ops
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Conn() *pgx.Conn { return nil }

// ==============================================
// MOCK ORDER REPOSITORY
// ==============================================

type MockOrderRepository struct {
	BeginTxFunc               func(ctx context.Context) (pgx.Tx, error)
	CreateOrderFunc           func(ctx context.Context, o *models.Order) error
	GetOrderByIDFunc          func(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIDForUpdateFunc func(ctx context.Context, tx pgx.Tx, id string) (*models.Order, error)
	UpdateOrderFunc           func(ctx context.Context, tx pgx.Tx, o *models.Order) error
	RecordPaymentEventFunc    func(ctx context.Context, tx pgx.Tx, ev *models.PaymentEvent) error
	ListOrdersByUserFunc      func(ctx context.Context, userID string) ([]models.Order, error)
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if m.BeginTxFunc != nil {
		return m.BeginTxFunc(ctx)
	}
	return &MockTx{}, nil
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *models.Order) error {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, o)
	}
	return nil
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if m.GetOrderByIDFunc != nil {
		return m.GetOrderByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockOrderRepository) GetOrderByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*models.Order, error) {
	if m.GetOrderByIDForUpdateFunc != nil {
		return m.GetOrderByIDForUpdateFunc(ctx, tx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, o *models.Order) error {
	if m.UpdateOrderFunc != nil {
		return m.UpdateOrderFunc(ctx, tx, o)
	}
	return nil
}

func (m *MockOrderRepository) RecordPaymentEvent(ctx context.Context, tx pgx.Tx, ev *models.PaymentEvent) error {
	if m.RecordPaymentEventFunc != nil {
		return m.RecordPaymentEventFunc(ctx, tx, ev)
	}
	return nil
}

func (m *MockOrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if m.ListOrdersByUserFunc != nil {
		return m.ListOrdersByUserFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

// ==============================================
// IN-MEMORY ORDER STORE
// ==============================================

// lockingTx holds a per-order lock until commit or rollback, the way a
// SELECT ... FOR UPDATE row lock does.
type lockingTx struct {
	MockTx
	store  *memOrderStore
	locked string
	staged *models.Order
	done   bool
}

func (t *lockingTx) Commit(ctx context.Context) error {
	if t.staged != nil {
		t.store.put(t.staged)
	}
	t.release()
	return nil
}

func (t *lockingTx) Rollback(ctx context.Context) error {
	t.release()
	return nil
}

func (t *lockingTx) release() {
	if t.done {
		return
	}
	t.done = true
	if t.locked != "" {
		t.store.lockFor(t.locked).Unlock()
	}
}

// memOrderStore implements OrderRepositoryInterface with real row locking,
// for exercising concurrent callbacks.
type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	locks  map[string]*sync.Mutex
	events []models.PaymentEvent
}

func newMemOrderStore(orders ...*models.Order) *memOrderStore {
	s := &memOrderStore{orders: map[string]*models.Order{}, locks: map[string]*sync.Mutex{}}
	for _, o := range orders {
		s.put(o)
	}
	return s
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Metadata = o.Metadata.Clone()
	return &c
}

func (s *memOrderStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *memOrderStore) put(o *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = copyOrder(o)
}

func (s *memOrderStore) get(id string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	return copyOrder(o)
}

func (s *memOrderStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *memOrderStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return &lockingTx{store: s}, nil
}

func (s *memOrderStore) CreateOrder(ctx context.Context, o *models.Order) error {
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	s.put(o)
	return nil
}

func (s *memOrderStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if o := s.get(id); o != nil {
		return o, nil
	}
	return nil, models.ErrOrderNotFound
}

func (s *memOrderStore) GetOrderByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*models.Order, error) {
	ltx := tx.(*lockingTx)
	if s.get(id) == nil {
		return nil, models.ErrOrderNotFound
	}
	s.lockFor(id).Lock()
	ltx.locked = id
	return s.get(id), nil
}

func (s *memOrderStore) UpdateOrder(ctx context.Context, tx pgx.Tx, o *models.Order) error {
	tx.(*lockingTx).staged = copyOrder(o)
	return nil
}

func (s *memOrderStore) RecordPaymentEvent(ctx context.Context, tx pgx.Tx, ev *models.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *memOrderStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

// ==============================================
// COLLABORATOR STUBS
// ==============================================

type stubGateway struct {
	CreateSessionFunc func(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error)
	ListChannelsFunc  func(ctx context.Context) ([]models.PaymentChannel, error)

	mu       sync.Mutex
	requests []models.SessionRequest
	lists    int
}

func (g *stubGateway) CreateSession(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.CreateSessionFunc != nil {
		return g.CreateSessionFunc(ctx, req)
	}
	return &models.PaymentSession{SessionID: "sess-1", RedirectURL: "https://pay.example/sess-1"}, nil
}

func (g *stubGateway) ListChannels(ctx context.Context) ([]models.PaymentChannel, error) {
	g.mu.Lock()
	g.lists++
	g.mu.Unlock()
	if g.ListChannelsFunc != nil {
		return g.ListChannelsFunc(ctx)
	}
	return nil, nil
}

type stubVerifier struct{ ok bool }

func (v stubVerifier) Verify(string, []byte) bool { return v.ok }

type stubActivator struct {
	mu     sync.Mutex
	calls  int
	seen   map[string]bool
	ctxErr error
	ErrFor func(o *models.Order) error
}

func (a *stubActivator) Activate(ctx context.Context, o *models.Order) (*models.Subscription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.ctxErr = ctx.Err()
	if a.ErrFor != nil {
		if err := a.ErrFor(o); err != nil {
			return nil, err
		}
	}
	if a.seen == nil {
		a.seen = map[string]bool{}
	}
	if a.seen[o.ID] {
		return nil, models.ErrSubscriptionExists
	}
	a.seen[o.ID] = true
	sub := models.NewSubscriptionForOrder(o, *o.PaidAt)
	sub.ID = "sub-" + o.ID
	return sub, nil
}

func (a *stubActivator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type stubNotifier struct {
	mu       sync.Mutex
	otps     map[string]string
	resets   map[string]string
	welcomes []string
	Err      error
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{otps: map[string]string{}, resets: map[string]string{}}
}

func (n *stubNotifier) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps[to] = code
	return n.Err
}

func (n *stubNotifier) SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[to] = link
	return n.Err
}

func (n *stubNotifier) SendWelcomeEmail(ctx context.Context, to, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, to)
	return n.Err
}

// ==============================================
// IN-MEMORY USER STORE
// ==============================================

// memUserStore serialises every transaction on one mutex, standing in for
// the account row lock.
type memUserStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	users map[string]*models.User
}

type userTx struct {
	MockTx
	store *memUserStore
	done  bool
}

func (t *userTx) Commit(ctx context.Context) error   { t.release(); return nil }
func (t *userTx) Rollback(ctx context.Context) error { t.release(); return nil }

func (t *userTx) release() {
	if !t.done {
		t.done = true
		t.store.txMu.Unlock()
	}
}

func newMemUserStore(users ...*models.User) *memUserStore {
	s := &memUserStore{users: map[string]*models.User{}}
	for _, u := range users {
		c := *u
		s.users[u.ID] = &c
	}
	return s
}

func (s *memUserStore) byEmail(email string) *models.User {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *memUserStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memUserStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	return &userTx{store: s}, nil
}

func (s *memUserStore) GetUserByEmailForUpdate(ctx context.Context, tx pgx.Tx, email string) (*models.User, error) {
	return s.GetUserByEmail(ctx, email)
}

func (s *memUserStore) SaveOTPState(ctx context.Context, tx pgx.Tx, userID string, st models.OTPState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ApplyOTPState(st)
	return nil
}

func (s *memUserStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(user.Email) != nil {
		return models.ErrEmailAlreadyExists
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *memUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byEmail(email)
	if u == nil {
		return nil, models.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) UpdateLastLogin(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.users[userID].LastLoginAt = &now
	return nil
}

func (s *memUserStore) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (s *memUserStore) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash && u.ResetTokenExpiresAt.After(now) {
			u.PasswordHash = passwordHash
			u.ResetTokenHash = nil
			u.ResetTokenExpiresAt = nil
			return u.ID, nil
		}
	}
	return "", models.ErrInvalidToken
}
