package handler_test

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/http/middleware"
	"github.com/ChetanXpro/yesbroker/internal/identity"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/repository"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

const testSecret = "handler-test-secret-0123456789abcdef"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     testSecret,
		SessionTTL:    time.Hour,
		CookieName:    "yesbroker_token",
		MaxImageBytes: 5 << 20,
	}
}

type fixture struct {
	cfg        config.Config
	tokens     *jwt.Manager
	users      *memoryUserRepo
	properties *memoryPropertyRepo
	sessions   *service.SessionService
	auth       *middleware.Auth
}

func newFixture(users []domain.User, properties []domain.Property) *fixture {
	cfg := testConfig()
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	userRepo := newMemoryUserRepo(users...)
	sessions := service.NewSessionService(userRepo, tokens, stubVerifier{}, cfg, zap.NewNop())
	return &fixture{
		cfg:        cfg,
		tokens:     tokens,
		users:      userRepo,
		properties: newMemoryPropertyRepo(properties...),
		sessions:   sessions,
		auth:       &middleware.Auth{Sessions: sessions, CookieName: cfg.CookieName},
	}
}

func (f *fixture) tokenFor(u domain.User) string {
	token, err := f.tokens.Issue(jwt.ClaimsFromUser(u))
	if err != nil {
		panic(err)
	}
	return token
}

type stubVerifier struct{}

func (stubVerifier) Verify(context.Context, identity.VerifyRequest) (identity.Result, error) {
	return identity.Result{}, identity.ErrNotConfigured
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func newMemoryUserRepo(seed ...domain.User) *memoryUserRepo {
	m := &memoryUserRepo{users: map[int64]domain.User{}}
	for _, u := range seed {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUserRepo) GetByWallet(_ context.Context, wallet string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.WalletAddress == wallet {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (m *memoryUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = int64(len(m.users) + 1)
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) MarkVerified(ctx context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	u.Verified = true
	m.users[id] = u
	return u, nil
}

func (m *memoryUserRepo) SetUserType(_ context.Context, id int64, userType domain.UserType) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	u.UserType = userType
	m.users[id] = u
	return u, nil
}

// memoryPropertyRepo covers the calls the handler tests reach.
type memoryPropertyRepo struct {
	mu         sync.Mutex
	nextID     int64
	properties map[int64]domain.Property
}

func newMemoryPropertyRepo(seed ...domain.Property) *memoryPropertyRepo {
	m := &memoryPropertyRepo{properties: map[int64]domain.Property{}}
	for _, p := range seed {
		m.properties[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memoryPropertyRepo) List(_ context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []domain.Property{}
	for _, p := range m.properties {
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (m *memoryPropertyRepo) Get(_ context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memoryPropertyRepo) Create(_ context.Context, p domain.Property) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.ImageURLs = []string{}
	m.properties[p.ID] = p
	return p, nil
}

func (m *memoryPropertyRepo) Update(_ context.Context, id int64, patch domain.PropertyPatch) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	m.properties[id] = p
	return p, nil
}

func (m *memoryPropertyRepo) Delete(_ context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	delete(m.properties, id)
	return p, nil
}

func (m *memoryPropertyRepo) AppendImages(context.Context, int64, []string, int) (domain.Property, error) {
	return domain.Property{}, repository.ErrNotFound
}

func (m *memoryPropertyRepo) RemoveImage(context.Context, int64, string) (domain.Property, error) {
	return domain.Property{}, repository.ErrNotFound
}

func (m *memoryPropertyRepo) SetVerification(_ context.Context, id int64, verified bool, txHash *string) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	p.IsVerified = verified
	p.VerificationTransactionHash = txHash
	m.properties[id] = p
	return p, nil
}

type memoryInterestRepo struct {
	mu         sync.Mutex
	properties *memoryPropertyRepo
	rows       []domain.PropertyInterest
}

func (m *memoryInterestRepo) Create(ctx context.Context, propertyID, userID int64) (domain.PropertyInterest, error) {
	if _, err := m.properties.Get(ctx, propertyID); err != nil {
		return domain.PropertyInterest{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.rows {
		if in.PropertyID == propertyID && in.UserID == userID {
			return domain.PropertyInterest{}, repository.ErrDuplicate
		}
	}
	in := domain.PropertyInterest{ID: int64(len(m.rows) + 1), PropertyID: propertyID, UserID: userID, CreatedAt: time.Now()}
	m.rows = append(m.rows, in)
	return in, nil
}

func (m *memoryInterestRepo) ListForOwnerProperty(context.Context, int64, int64) ([]domain.InterestedRenter, error) {
	return []domain.InterestedRenter{}, nil
}

func (m *memoryInterestRepo) ListForUser(_ context.Context, userID int64) ([]domain.InterestedProperty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []domain.InterestedProperty{}
	for _, in := range m.rows {
		if in.UserID == userID {
			res = append(res, domain.InterestedProperty{PropertyInterest: in})
		}
	}
	return res, nil
}

func (m *memoryInterestRepo) Delete(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, in := range m.rows {
		if in.ID == id && in.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
