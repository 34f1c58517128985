package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/identity"
	"github.com/ChetanXpro/yesbroker/internal/proofstore"
	"github.com/ChetanXpro/yesbroker/internal/prover"
	"github.com/ChetanXpro/yesbroker/internal/repository"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

func requireKind(t require.TestingT, err error, kind service.ErrorKind) *service.Error {
	require.Error(t, err)
	svcErr, ok := service.AsError(err)
	require.True(t, ok, "expected *service.Error, got %v", err)
	require.Equal(t, kind, svcErr.Kind, svcErr.Message)
	return svcErr
}

type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
}

func newMemoryUserRepo(seed ...domain.User) *memoryUserRepo {
	m := &memoryUserRepo{users: map[int64]domain.User{}}
	for _, u := range seed {
		m.users[u.ID] = u
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
	}
	return m
}

func (m *memoryUserRepo) GetByWallet(ctx context.Context, wallet string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.WalletAddress == wallet {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.WalletAddress == user.WalletAddress {
			return domain.User{}, repository.ErrDuplicate
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
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

func (m *memoryUserRepo) SetUserType(ctx context.Context, id int64, userType domain.UserType) (domain.User, error) {
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

type memoryPropertyRepo struct {
	mu         sync.Mutex
	nextID     int64
	properties map[int64]domain.Property
}

func newMemoryPropertyRepo(seed ...domain.Property) *memoryPropertyRepo {
	m := &memoryPropertyRepo{properties: map[int64]domain.Property{}}
	for _, p := range seed {
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
		m.properties[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memoryPropertyRepo) exists(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.properties[id]
	return ok
}

func (m *memoryPropertyRepo) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []domain.Property{}
	for _, p := range m.properties {
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.City != "" && !strings.Contains(strings.ToLower(p.City), strings.ToLower(filter.City)) {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (m *memoryPropertyRepo) Get(ctx context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	p.ImageURLs = append([]string{}, p.ImageURLs...)
	return p, nil
}

func (m *memoryPropertyRepo) Create(ctx context.Context, p domain.Property) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.ImageURLs = []string{}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.properties[p.ID] = p
	return p, nil
}

func (m *memoryPropertyRepo) Update(ctx context.Context, id int64, patch domain.PropertyPatch) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.City != nil {
		p.City = *patch.City
	}
	m.properties[id] = p
	return p, nil
}

func (m *memoryPropertyRepo) Delete(ctx context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	delete(m.properties, id)
	return p, nil
}

func (m *memoryPropertyRepo) AppendImages(ctx context.Context, id int64, urls []string, limit int) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	if len(p.ImageURLs)+len(urls) > limit {
		return domain.Property{}, repository.ErrImageLimit
	}
	p.ImageURLs = append(append([]string{}, p.ImageURLs...), urls...)
	m.properties[id] = p
	return p, nil
}

func (m *memoryPropertyRepo) RemoveImage(ctx context.Context, id int64, url string) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return domain.Property{}, repository.ErrNotFound
	}
	kept := []string{}
	for _, u := range p.ImageURLs {
		if u != url {
			kept = append(kept, u)
		}
	}
	p.ImageURLs = kept
	m.properties[id] = p
	return p, nil
}

func (m *memoryPropertyRepo) SetVerification(ctx context.Context, id int64, verified bool, txHash *string) (domain.Property, error) {
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

type interestKey struct{ propertyID, userID int64 }

type memoryInterestRepo struct {
	mu         sync.Mutex
	properties *memoryPropertyRepo
	nextID     int64
	rows       map[int64]domain.PropertyInterest
	pairs      map[interestKey]int64
}

func newMemoryInterestRepo(properties *memoryPropertyRepo) *memoryInterestRepo {
	return &memoryInterestRepo{
		properties: properties,
		rows:       map[int64]domain.PropertyInterest{},
		pairs:      map[interestKey]int64{},
	}
}

func (m *memoryInterestRepo) Create(ctx context.Context, propertyID, userID int64) (domain.PropertyInterest, error) {
	if !m.properties.exists(propertyID) {
		return domain.PropertyInterest{}, repository.ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := interestKey{propertyID, userID}
	if _, dup := m.pairs[key]; dup {
		return domain.PropertyInterest{}, repository.ErrDuplicate
	}
	m.nextID++
	in := domain.PropertyInterest{ID: m.nextID, PropertyID: propertyID, UserID: userID, CreatedAt: time.Now()}
	m.rows[in.ID] = in
	m.pairs[key] = in.ID
	return in, nil
}

func (m *memoryInterestRepo) ListForOwnerProperty(ctx context.Context, propertyID, ownerID int64) ([]domain.InterestedRenter, error) {
	p, err := m.properties.Get(ctx, propertyID)
	if err != nil || p.OwnerID != ownerID {
		return []domain.InterestedRenter{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []domain.InterestedRenter{}
	for _, in := range m.rows {
		if in.PropertyID == propertyID {
			res = append(res, domain.InterestedRenter{PropertyInterest: in, PropertyTitle: p.Title})
		}
	}
	return res, nil
}

func (m *memoryInterestRepo) ListForUser(ctx context.Context, userID int64) ([]domain.InterestedProperty, error) {
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

func (m *memoryInterestRepo) Delete(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.rows[id]
	if !ok || in.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	delete(m.pairs, interestKey{in.PropertyID, in.UserID})
	return nil
}

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	failPut   func(key string) error
	failDelete error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (s *memoryStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if s.failPut != nil {
		if err := s.failPut(key); err != nil {
			return "", err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return "https://bucket.s3.us-east-1.amazonaws.com/" + key, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.failDelete != nil {
		return s.failDelete
	}
	delete(s.objects, key)
	return nil
}

func (s *memoryStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

func (s *memoryStore) object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	return body, ok
}

// memoryListingCache versions its keys the same way the Redis cache does.
type memoryListingCache struct {
	mu      sync.Mutex
	version int
	pages   map[string][]domain.Property
}

func newMemoryListingCache() *memoryListingCache {
	return &memoryListingCache{pages: map[string][]domain.Property{}}
}

func (c *memoryListingCache) Key(ctx context.Context, filter domain.PropertyFilter) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner := ""
	if filter.OwnerID != nil {
		owner = fmt.Sprint(*filter.OwnerID)
	}
	return fmt.Sprintf("v%d:%s:%s:%s", c.version, filter.Status, strings.ToLower(filter.City), owner), nil
}

func (c *memoryListingCache) Get(ctx context.Context, key string) ([]domain.Property, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, ok := c.pages[key]
	return page, ok, nil
}

func (c *memoryListingCache) Set(ctx context.Context, key string, properties []domain.Property) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = properties
	return nil
}

func (c *memoryListingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	return nil
}

// interleavedPropertyRepo runs afterList once, between the database read and
// the cache write of the first List call.
type interleavedPropertyRepo struct {
	*memoryPropertyRepo
	afterList func()
}

func (r *interleavedPropertyRepo) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	res, err := r.memoryPropertyRepo.List(ctx, filter)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return res, err
}

// barrierPropertyRepo holds every AppendImages call until n callers arrive.
type barrierPropertyRepo struct {
	*memoryPropertyRepo
	arrived sync.WaitGroup
}

func newBarrierPropertyRepo(repo *memoryPropertyRepo, n int) *barrierPropertyRepo {
	r := &barrierPropertyRepo{memoryPropertyRepo: repo}
	r.arrived.Add(n)
	return r
}

func (r *barrierPropertyRepo) AppendImages(ctx context.Context, id int64, urls []string, limit int) (domain.Property, error) {
	r.arrived.Done()
	r.arrived.Wait()
	return r.memoryPropertyRepo.AppendImages(ctx, id, urls, limit)
}

type fakeVerifier struct {
	result identity.Result
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(ctx context.Context, req identity.VerifyRequest) (identity.Result, error) {
	f.calls++
	return f.result, f.err
}

func validResult(wallet string) identity.Result {
	var r identity.Result
	r.IsValidDetails.IsValid = true
	r.UserData.UserIdentifier = wallet
	r.DiscloseOutput = json.RawMessage(`{"nationality":"IND"}`)
	return r
}

type fakeProver struct {
	proof   json.RawMessage
	verdict prover.Verdict
	err     error
}

func (f *fakeProver) Prove(ctx context.Context, propertyID int64, pdf []byte) (json.RawMessage, error) {
	return f.proof, f.err
}

func (f *fakeProver) Verify(ctx context.Context, proof json.RawMessage) (prover.Verdict, error) {
	return f.verdict, f.err
}

type memoryArchive struct {
	records []proofstore.Record
}

func (a *memoryArchive) Save(ctx context.Context, rec proofstore.Record) (proofstore.Record, error) {
	a.records = append(a.records, rec)
	return rec, nil
}

func (a *memoryArchive) Latest(ctx context.Context, propertyID int64) (proofstore.Record, error) {
	for i := len(a.records) - 1; i >= 0; i-- {
		if a.records[i].PropertyID == propertyID {
			return a.records[i], nil
		}
	}
	return proofstore.Record{}, proofstore.ErrNotFound
}

var errBoom = errors.New("boom")
