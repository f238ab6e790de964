package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/jobs"
)

type memoryGrievances struct {
	mu       sync.Mutex
	items    map[string]models.Grievance
	allCalls int
	updates  int
	err      error
	openErrs []error
}

func newMemoryGrievances(items ...models.Grievance) *memoryGrievances {
	store := &memoryGrievances{items: make(map[string]models.Grievance)}
	for _, g := range items {
		store.items[g.ID] = g.Clone()
	}
	return store
}

func (m *memoryGrievances) FindByID(_ context.Context, id string) (*models.Grievance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := g.Clone()
	return &out, nil
}

func (m *memoryGrievances) List(_ context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	all := m.sorted()
	out := make([]models.Grievance, 0, len(all))
	for _, g := range all {
		if filter.UserID != "" && g.UserID != filter.UserID {
			continue
		}
		if len(filter.Status) > 0 && !containsStatus(filter.Status, g.Status) {
			continue
		}
		out = append(out, g)
	}
	return out, len(out), nil
}

func (m *memoryGrievances) All(context.Context) ([]models.Grievance, error) {
	m.mu.Lock()
	m.allCalls++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.sorted(), nil
}

func (m *memoryGrievances) Open(context.Context) ([]models.Grievance, error) {
	m.mu.Lock()
	if len(m.openErrs) > 0 {
		err := m.openErrs[0]
		m.openErrs = m.openErrs[1:]
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()
	out := make([]models.Grievance, 0)
	for _, g := range m.sorted() {
		if g.Status.IsOpen() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryGrievances) Create(_ context.Context, g *models.Grievance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[g.ID] = g.Clone()
	return nil
}

func (m *memoryGrievances) Update(_ context.Context, g *models.Grievance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[g.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updates++
	m.items[g.ID] = g.Clone()
	return nil
}

func (m *memoryGrievances) get(id string) models.Grievance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Clone()
}

func (m *memoryGrievances) sorted() []models.Grievance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Grievance, 0, len(m.items))
	for _, g := range m.items {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryUsers struct {
	items []models.User
	err   error
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.items {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUsers) All(context.Context) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.User(nil), m.items...), nil
}

type memoryRules struct {
	items   []models.WorkflowRule
	created []models.WorkflowRule
}

func (m *memoryRules) List(context.Context) ([]models.WorkflowRule, error) {
	return append([]models.WorkflowRule(nil), m.items...), nil
}

func (m *memoryRules) Get(_ context.Context, id string) (*models.WorkflowRule, error) {
	for _, r := range m.items {
		if r.ID == id {
			rule := r
			return &rule, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryRules) Count(context.Context) (int, error) { return len(m.items), nil }

func (m *memoryRules) Create(_ context.Context, rule *models.WorkflowRule) error {
	if rule.ID == "" {
		rule.ID = "rule-new"
	}
	m.items = append(m.items, *rule)
	m.created = append(m.created, *rule)
	return nil
}

func (m *memoryRules) Update(_ context.Context, rule *models.WorkflowRule) error {
	for i := range m.items {
		if m.items[i].ID == rule.ID {
			m.items[i] = *rule
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryRules) SetEnabled(_ context.Context, id string, enabled bool) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Enabled = enabled
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryRules) Delete(_ context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []models.AppNotification
	err   error
}

func (r *recordingNotifier) Dispatch(_ context.Context, items []models.AppNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
	return r.err
}

func (r *recordingNotifier) sent() []models.AppNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AppNotification(nil), r.items...)
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type stubCacheRepo struct {
	mu       sync.Mutex
	store    map[string][]byte
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	s.store = nil
	return nil
}

func containsStatus(statuses []models.GrievanceStatus, s models.GrievanceStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func staff(role models.Role, id string) models.Principal {
	return models.Principal{UserID: id, Role: role}
}
