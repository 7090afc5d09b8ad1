package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/user/record-api/internal/domain"
)

// MockTxManager is an in-memory implementation of domain.TransactionManager.
// It runs fn directly and records the call; CommitErr simulates a commit
// failure after fn has succeeded.
type MockTxManager struct {
	mu        sync.Mutex
	Calls     int
	Rollbacks int
	CommitErr error
}

func (m *MockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	if m.CommitErr != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrTransaction, m.CommitErr)
	}
	return nil
}

// MockInteractionRepository is an in-memory, tenant-scoped implementation of
// domain.InteractionRepository for testing. It applies the same scoping
// rules as the real repository: a foreign tenant's row reads as absent.
type MockInteractionRepository struct {
	mu     sync.Mutex
	nextID int64
	Items  map[int64]*domain.Interaction

	FindErr   error
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error
}

func NewMockInteractionRepository() *MockInteractionRepository {
	return &MockInteractionRepository{Items: make(map[int64]*domain.Interaction)}
}

func (m *MockInteractionRepository) Find(ctx context.Context, tc domain.TenantContext, id int64) (*domain.Interaction, error) {
	if !tc.Scoped() {
		return nil, domain.ErrUnauthorized
	}
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.Items[id]
	if !ok || in.SiteID != tc.SiteID {
		return nil, domain.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *MockInteractionRepository) List(ctx context.Context, tc domain.TenantContext, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	return m.query(tc, "", filters)
}

func (m *MockInteractionRepository) Search(ctx context.Context, tc domain.TenantContext, query string, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	return m.query(tc, query, filters)
}

func (m *MockInteractionRepository) query(tc domain.TenantContext, query string, filters []domain.Filter) ([]*domain.Interaction, int, error) {
	if !tc.Scoped() {
		return nil, 0, domain.ErrUnauthorized
	}
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var items []*domain.Interaction
	for _, in := range m.Items {
		if in.SiteID != tc.SiteID {
			continue
		}
		if query != "" && !strings.Contains(in.Title, query) && !strings.Contains(in.Contact, query) && !strings.Contains(in.Body, query) {
			continue
		}
		if !matchesFilters(in, filters) {
			continue
		}
		cp := *in
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func matchesFilters(in *domain.Interaction, filters []domain.Filter) bool {
	for _, f := range filters {
		switch f.Field {
		case "status":
			if f.Op == domain.OpEquals && string(in.Status) != fmt.Sprint(f.Value) {
				return false
			}
		case "channel":
			if f.Op == domain.OpEquals && string(in.Channel) != fmt.Sprint(f.Value) {
				return false
			}
		case "contact":
			if f.Op == domain.OpContains && !strings.Contains(in.Contact, fmt.Sprint(f.Value)) {
				return false
			}
		}
	}
	return true
}

func (m *MockInteractionRepository) Create(ctx context.Context, tc domain.TenantContext, in *domain.Interaction) error {
	if !tc.Scoped() {
		return domain.ErrUnauthorized
	}
	if in.SiteID != 0 && in.SiteID != tc.SiteID {
		return domain.ErrUnauthorized
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	in.ID = m.nextID
	in.SiteID = tc.SiteID
	if in.Status == "" {
		in.Status = domain.StatusOpen
	}
	cp := *in
	m.Items[in.ID] = &cp
	return nil
}

func (m *MockInteractionRepository) Update(ctx context.Context, tc domain.TenantContext, id int64, patch domain.InteractionPatch) (*domain.Interaction, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}

	existing, err := m.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Status != nil {
		existing.Status = *patch.Status
	}
	if patch.Channel != nil {
		existing.Channel = *patch.Channel
	}
	if patch.Contact != nil {
		existing.Contact = *patch.Contact
	}
	if patch.Body != nil {
		existing.Body = *patch.Body
	}
	if patch.OccurredAt != nil {
		existing.OccurredAt = *patch.OccurredAt
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *existing
	m.Items[id] = &cp
	return existing, nil
}

func (m *MockInteractionRepository) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	if !tc.Scoped() {
		return false, domain.ErrUnauthorized
	}
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.Items[id]
	if !ok || in.SiteID != tc.SiteID {
		return false, nil
	}
	delete(m.Items, id)
	return true, nil
}

func (m *MockInteractionRepository) RequireDelete(ctx context.Context, tc domain.TenantContext, id int64) error {
	deleted, err := m.Delete(ctx, tc, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// MockNoteRepository is an in-memory implementation of domain.NoteRepository.
type MockNoteRepository struct {
	mu     sync.Mutex
	nextID int64
	Items  map[int64]*domain.Note

	CreateErr error
}

func NewMockNoteRepository() *MockNoteRepository {
	return &MockNoteRepository{Items: make(map[int64]*domain.Note)}
}

func (m *MockNoteRepository) Find(ctx context.Context, tc domain.TenantContext, id int64) (*domain.Note, error) {
	if !tc.Scoped() {
		return nil, domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Items[id]
	if !ok || n.SiteID != tc.SiteID {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MockNoteRepository) ListByInteraction(ctx context.Context, tc domain.TenantContext, interactionID int64, page domain.Page) ([]*domain.Note, int, error) {
	if !tc.Scoped() {
		return nil, 0, domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*domain.Note
	for _, n := range m.Items {
		if n.SiteID == tc.SiteID && n.InteractionID == interactionID {
			cp := *n
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *MockNoteRepository) Create(ctx context.Context, tc domain.TenantContext, n *domain.Note) error {
	if !tc.Scoped() {
		return domain.ErrUnauthorized
	}
	if n.SiteID != 0 && n.SiteID != tc.SiteID {
		return domain.ErrUnauthorized
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	n.SiteID = tc.SiteID
	cp := *n
	m.Items[n.ID] = &cp
	return nil
}

func (m *MockNoteRepository) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	if !tc.Scoped() {
		return false, domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Items[id]
	if !ok || n.SiteID != tc.SiteID {
		return false, nil
	}
	delete(m.Items, id)
	return true, nil
}

// MockUserRepository is an in-memory implementation of domain.UserRepository.
type MockUserRepository struct {
	mu     sync.Mutex
	nextID int64
	Items  map[int64]*domain.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Items: make(map[int64]*domain.User)}
}

func (m *MockUserRepository) Find(ctx context.Context, tc domain.TenantContext, id int64) (*domain.User, error) {
	if !tc.Scoped() {
		return nil, domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Items[id]
	if !ok || u.SiteID != tc.SiteID {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, siteID int64, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Items {
		if u.SiteID == siteID && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, tc domain.TenantContext, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.User, int, error) {
	if !tc.Scoped() {
		return nil, 0, domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*domain.User
	for _, u := range m.Items {
		if u.SiteID == tc.SiteID {
			cp := *u
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *MockUserRepository) Create(ctx context.Context, tc domain.TenantContext, u *domain.User) error {
	if !tc.Scoped() {
		return domain.ErrUnauthorized
	}
	if u.SiteID != 0 && u.SiteID != tc.SiteID {
		return domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Items {
		if existing.SiteID == tc.SiteID && existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.SiteID = tc.SiteID
	cp := *u
	m.Items[u.ID] = &cp
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, tc domain.TenantContext, id int64, patch domain.UserPatch) (*domain.User, error) {
	u, err := m.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.Items[id] = &cp
	return u, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	if !tc.Scoped() {
		return false, domain.ErrUnauthorized
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Items[id]
	if !ok || u.SiteID != tc.SiteID {
		return false, nil
	}
	delete(m.Items, id)
	return true, nil
}

func (m *MockUserRepository) RequireDelete(ctx context.Context, tc domain.TenantContext, id int64) error {
	deleted, err := m.Delete(ctx, tc, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// MockSiteRepository is an in-memory implementation of domain.SiteRepository.
type MockSiteRepository struct {
	mu     sync.Mutex
	nextID int64
	Items  map[int64]*domain.Site
}

func NewMockSiteRepository() *MockSiteRepository {
	return &MockSiteRepository{Items: make(map[int64]*domain.Site)}
}

func (m *MockSiteRepository) Find(ctx context.Context, id int64) (*domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSiteRepository) FindBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Items {
		if s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSiteRepository) List(ctx context.Context, page domain.Page) ([]*domain.Site, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*domain.Site
	for _, s := range m.Items {
		cp := *s
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *MockSiteRepository) Create(ctx context.Context, s *domain.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.Items[s.ID] = &cp
	return nil
}

func (m *MockSiteRepository) Update(ctx context.Context, s *domain.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	m.Items[s.ID] = &cp
	return nil
}
