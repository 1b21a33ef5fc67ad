package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/repository"
)

// newTestEcho returns an Echo wired like the server: validator, envelope
// error handler and a fake identity for user id 5.
func newTestEcho() *echo.Echo {
	log, _ := test.NewNullLogger()
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler(log)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uint64(5))
			return next(c)
		}
	})
	return e
}

type result struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Token   string            `json:"token"`
	Count   *int              `json:"count"`
	Data    json.RawMessage   `json:"data"`
	Errors  []json.RawMessage `json:"errors"`
}

func call(t *testing.T, e *echo.Echo, method, path, body string) (int, result) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var res result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

func fieldsOf(t *testing.T, r result) []string {
	t.Helper()
	var out []string
	for _, raw := range r.Errors {
		var fe struct {
			Field string `json:"field"`
		}
		require.NoError(t, json.Unmarshal(raw, &fe))
		out = append(out, fe.Field)
	}
	return out
}

// memCrops is an in-memory CropStore.
type memCrops struct {
	mu    sync.Mutex
	next  uint64
	crops map[uint64]*model.Crop
}

func newMemCrops() *memCrops { return &memCrops{next: 1, crops: map[uint64]*model.Crop{}} }

func (m *memCrops) List(context.Context) ([]*model.Crop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Crop{}
	for _, c := range m.crops {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memCrops) GetByID(_ context.Context, id uint64) (*model.Crop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.crops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCrops) Create(_ context.Context, c *model.Crop) (*model.Crop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.next
	m.next++
	c.CreatedAt = time.Now().UTC()
	m.crops[c.ID] = c
	return c, nil
}

func (m *memCrops) Update(_ context.Context, id uint64, c *model.Crop) (*model.Crop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.crops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.ID, c.ResponsibleID, c.CreatedAt = id, old.ResponsibleID, old.CreatedAt
	m.crops[id] = c
	return c, nil
}

func (m *memCrops) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.crops[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.crops, id)
	return nil
}

// stubAnimals answers every write with err and reads with stored.
type stubAnimals struct {
	err    error
	seen   *model.Animal
	stored *model.Animal
}

func (s *stubAnimals) List(context.Context) ([]*model.Animal, error) { return nil, s.err }

func (s *stubAnimals) GetByID(context.Context, uint64) (*model.Animal, error) {
	if s.stored == nil {
		return nil, repository.ErrNotFound
	}
	a := *s.stored
	return &a, nil
}

func (s *stubAnimals) Create(_ context.Context, a *model.Animal) (*model.Animal, error) {
	s.seen = a
	if s.err != nil {
		return nil, s.err
	}
	a.ID = 1
	return a, nil
}

func (s *stubAnimals) Update(_ context.Context, _ uint64, a *model.Animal) (*model.Animal, error) {
	return s.Create(context.Background(), a)
}

func (s *stubAnimals) Delete(context.Context, uint64) error { return s.err }

// stubEntries records the last entry written and reads with stored.
type stubEntries struct {
	err    error
	seen   *model.LogEntry
	stored *model.LogEntry
}

func (s *stubEntries) List(context.Context) ([]*model.LogEntry, error) {
	return []*model.LogEntry{}, nil
}

func (s *stubEntries) GetByID(context.Context, uint64) (*model.LogEntry, error) {
	if s.stored == nil {
		return nil, repository.ErrNotFound
	}
	e := *s.stored
	return &e, nil
}

func (s *stubEntries) Create(_ context.Context, e *model.LogEntry) (*model.LogEntry, error) {
	s.seen = e
	if s.err != nil {
		return nil, s.err
	}
	e.ID = 1
	return e, nil
}

func (s *stubEntries) Update(_ context.Context, _ uint64, e *model.LogEntry) (*model.LogEntry, error) {
	return s.Create(context.Background(), e)
}

func (s *stubEntries) Delete(context.Context, uint64) error { return s.err }

// memUsers is a minimal service.UserStore.
type memUsers struct {
	mu   sync.Mutex
	next uint64
	byID map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{next: 1, byID: map[uint64]*model.User{}} }

func (m *memUsers) find(match func(*model.User) bool) *model.User {
	for _, u := range m.byID {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.ID = m.next
	m.next++
	c := *u
	m.byID[u.ID] = &c
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(func(u *model.User) bool { return u.ID == id }); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(func(u *model.User) bool { return u.Email == strings.ToLower(email) }); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByIdentifier(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(func(u *model.User) bool {
		return u.Email == strings.ToLower(id) || u.IdentityNumber == id
	}); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) ExistsByEmailOrIdentity(_ context.Context, email, identity string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *model.User) bool {
		return u.Email == strings.ToLower(email) || u.IdentityNumber == identity
	}) != nil, nil
}

func (m *memUsers) EmailTakenByOther(_ context.Context, email string, exclude uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *model.User) bool { return u.ID != exclude && u.Email == email }) != nil, nil
}

func (m *memUsers) List(context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.User{}
	for _, u := range m.byID {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c := *u
	c.PasswordHash = old.PasswordHash
	m.byID[u.ID] = &c
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) SetActive(_ context.Context, id uint64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	return nil
}

