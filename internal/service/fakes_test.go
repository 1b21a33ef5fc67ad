package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/queue"
	"github.com/iliyamo/agro-operations/internal/repository"
	"github.com/iliyamo/agro-operations/internal/utils"
)

// fakeUserStore keeps users in memory and enforces the same unique keys as
// the users table.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.User
	writes int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, byID: map[uint64]*model.User{}}
}

func clone(u *model.User) *model.User {
	c := *u
	return &c
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, o := range f.byID {
		if o.Email == u.Email || o.IdentityNumber == u.IdentityNumber {
			return repository.ErrDuplicate
		}
	}
	u.ID = f.nextID
	f.nextID++
	u.CreatedAt = time.Now().UTC()
	f.byID[u.ID] = clone(u)
	f.writes++
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identifier = strings.TrimSpace(identifier)
	for _, u := range f.byID {
		if u.Email == strings.ToLower(identifier) || u.IdentityNumber == identifier {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) ExistsByEmailOrIdentity(_ context.Context, email, identity string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email || u.IdentityNumber == identity {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) EmailTakenByOther(_ context.Context, email string, excludeID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.byID {
		if id != excludeID && u.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) List(_ context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeUserStore) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, o := range f.byID {
		if id != u.ID && (o.Email == u.Email || o.IdentityNumber == u.IdentityNumber) {
			return repository.ErrDuplicate
		}
	}
	stored := f.byID[u.ID]
	c := clone(u)
	c.PasswordHash = stored.PasswordHash
	f.byID[u.ID] = c
	f.writes++
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.writes++
	return nil
}

func (f *fakeUserStore) SetActive(_ context.Context, id uint64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	f.writes++
	return nil
}

func (f *fakeUserStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AuditEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// testCost keeps bcrypt fast in tests.
const testCost = 4

func newAccountFixture() (*AccountService, *fakeUserStore, *utils.TokenService, *recordingPublisher) {
	store := newFakeUserStore()
	tokens := utils.NewTokenService("test-secret", time.Hour)
	pub := &recordingPublisher{}
	return NewAccountService(store, tokens, testCost, pub, quietLogger()), store, tokens, pub
}

func strPtr(s string) *string { return &s }
