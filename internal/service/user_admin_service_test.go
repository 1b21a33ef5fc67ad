package service

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/queue"
)

func newAdminFixture(t *testing.T) (*UserAdminService, *AccountService, *fakeUserStore, *recordingPublisher) {
	t.Helper()
	accounts, store, _, _ := newAccountFixture()
	pub := &recordingPublisher{}
	return NewUserAdminService(store, testCost, pub, quietLogger()), accounts, store, pub
}

func TestUserAdmin_ListAndGet(t *testing.T) {
	admin, accounts, _, _ := newAdminFixture(t)
	ctx := context.Background()
	_, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)
	b, err := accounts.Register(ctx, registerInput("b@x.com", "2"))
	require.NoError(t, err)

	list, err := admin.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.User.ID, list[0].ID)

	got, err := admin.Get(ctx, b.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", got.Email)

	_, err = admin.Get(ctx, 999)
	assertKind(t, err, KindNotFound)
}

func TestUserAdmin_UpdateNeverTouchesPassword(t *testing.T) {
	admin, accounts, store, _ := newAdminFixture(t)
	ctx := context.Background()
	a, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)

	role := model.RoleAdministrator
	p, err := admin.Update(ctx, 99, a.User.ID, UserUpdate{Role: &role, Name: strPtr("Ana T.")})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, p.Role)
	assert.Equal(t, "Ana T.", p.Name)

	stored, err := store.GetByID(ctx, a.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.VerifyPassword("secret1"))
}

func TestUserAdmin_UpdateConflicts(t *testing.T) {
	admin, accounts, _, _ := newAdminFixture(t)
	ctx := context.Background()
	a, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)
	_, err = accounts.Register(ctx, registerInput("b@x.com", "2"))
	require.NoError(t, err)

	_, err = admin.Update(ctx, 99, a.User.ID, UserUpdate{Email: strPtr("b@x.com")})
	assertKind(t, err, KindConflict)

	_, err = admin.Update(ctx, 99, a.User.ID, UserUpdate{IdentityNumber: strPtr("2")})
	assertKind(t, err, KindConflict)

	bad := model.Role("owner")
	_, err = admin.Update(ctx, 99, a.User.ID, UserUpdate{Role: &bad})
	assertKind(t, err, KindValidation)
}

func TestUserAdmin_Deactivate(t *testing.T) {
	admin, accounts, store, pub := newAdminFixture(t)
	ctx := context.Background()
	a, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)

	err = admin.Deactivate(ctx, a.User.ID, a.User.ID)
	assertKind(t, err, KindValidation)

	require.NoError(t, admin.Deactivate(ctx, 99, a.User.ID))
	stored, err := store.GetByID(ctx, a.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	assertKind(t, admin.Deactivate(ctx, 99, 12345), KindNotFound)

	assert.Eventually(t, func() bool {
		return slices.Equal(pub.types(), []string{queue.EventUserDeactivated})
	}, time.Second, 10*time.Millisecond)
}

func TestUserAdmin_SelfDeactivationThroughUpdate(t *testing.T) {
	admin, accounts, _, _ := newAdminFixture(t)
	ctx := context.Background()
	a, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)

	inactive := false
	_, err = admin.Update(ctx, a.User.ID, a.User.ID, UserUpdate{Active: &inactive})
	assertKind(t, err, KindValidation)
}

func TestUserAdmin_UpdateDeactivationEmitsEvent(t *testing.T) {
	admin, accounts, store, pub := newAdminFixture(t)
	ctx := context.Background()
	a, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)

	inactive, active := false, true
	p, err := admin.Update(ctx, 99, a.User.ID, UserUpdate{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, p.Active)
	stored, err := store.GetByID(ctx, a.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	// Only the true to false transition is an event.
	_, err = admin.Update(ctx, 99, a.User.ID, UserUpdate{Active: &inactive})
	require.NoError(t, err)
	_, err = admin.Update(ctx, 99, a.User.ID, UserUpdate{Active: &active})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return slices.Equal(pub.types(), []string{queue.EventUserDeactivated})
	}, time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return len(pub.types()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestUserAdmin_ResetPassword(t *testing.T) {
	admin, accounts, _, _ := newAdminFixture(t)
	ctx := context.Background()
	a, err := accounts.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)

	assertKind(t, admin.ResetPassword(ctx, 99, a.User.ID, "short"), KindValidation)
	assertKind(t, admin.ResetPassword(ctx, 99, 777, "longenough"), KindNotFound)

	require.NoError(t, admin.ResetPassword(ctx, 99, a.User.ID, "longenough"))
	_, err = accounts.Login(ctx, "a@x.com", "longenough")
	assert.NoError(t, err)
}
