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

func registerInput(email, identity string) RegisterInput {
	return RegisterInput{
		Name:            "Ana Torres",
		IdentityNumber:  identity,
		Email:           email,
		Phone:           "0991234567",
		Area:            model.AreaCrops,
		Role:            model.RoleWorker,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "expected a service error, got %v", err)
	assert.Equal(t, want, got)
}

func TestRegister_IssuesTokenAndProfile(t *testing.T) {
	svc, store, tokens, pub := newAccountFixture()

	sess, err := svc.Register(context.Background(), registerInput("A@X.com", "1712345678"))
	require.NoError(t, err)

	id, err := tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id)
	assert.Equal(t, "a@x.com", sess.User.Email)
	assert.True(t, sess.User.Active)

	stored, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, stored.VerifyPassword("secret1"))

	assert.Eventually(t, func() bool {
		types := pub.types()
		return len(types) == 1 && types[0] == queue.EventUserRegistered
	}, time.Second, 10*time.Millisecond)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	svc, store, _, _ := newAccountFixture()

	in := registerInput("a@x.com", "1")
	in.ConfirmPassword = "secret2"
	_, err := svc.Register(context.Background(), in)
	assertKind(t, err, KindValidation)
	assert.Zero(t, store.writeCount())
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _, _, _ := newAccountFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("a@x.com", "1111111111"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("a@x.com", "2222222222"))
	assertKind(t, err, KindConflict)

	_, err = svc.Register(ctx, registerInput("b@x.com", "1111111111"))
	assertKind(t, err, KindConflict)
}

func TestRegister_DefaultsRoleToWorker(t *testing.T) {
	svc, _, _, _ := newAccountFixture()

	in := registerInput("a@x.com", "1")
	in.Role = ""
	sess, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleWorker, sess.User.Role)
}

func TestLogin_ByEmailOrIdentity(t *testing.T) {
	svc, _, _, _ := newAccountFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput("a@x.com", "1712345678"))
	require.NoError(t, err)

	byEmail, err := svc.Login(ctx, "A@x.com", "secret1")
	require.NoError(t, err)
	byIdentity, err := svc.Login(ctx, "1712345678", "secret1")
	require.NoError(t, err)
	assert.Equal(t, byEmail.User.ID, byIdentity.User.ID)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, _, _ := newAccountFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput("a@x.com", "1712345678"))
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, "a@x.com", "wrongpass")
	_, unknown := svc.Login(ctx, "nonexistent@x.com", "anything")

	assertKind(t, wrongPass, KindUnauthorized)
	assertKind(t, unknown, KindUnauthorized)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestLogin_InactiveAccountRejected(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	ctx := context.Background()
	sess, err := svc.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)
	require.NoError(t, store.SetActive(ctx, sess.User.ID, false))

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assertKind(t, err, KindUnauthorized)
}

func TestCurrentUser_Missing(t *testing.T) {
	svc, _, _, _ := newAccountFixture()
	_, err := svc.CurrentUser(context.Background(), 42)
	assertKind(t, err, KindNotFound)
}

func TestUpdateProfile_PartialAndConflict(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerInput("b@x.com", "2"))
	require.NoError(t, err)

	p, err := svc.UpdateProfile(ctx, a.User.ID, ProfileUpdate{Phone: strPtr("0980000000")})
	require.NoError(t, err)
	assert.Equal(t, "0980000000", p.Phone)
	assert.Equal(t, "Ana Torres", p.Name)
	assert.Equal(t, "a@x.com", p.Email)

	_, err = svc.UpdateProfile(ctx, a.User.ID, ProfileUpdate{Name: strPtr("Changed"), Email: strPtr("b@x.com")})
	assertKind(t, err, KindConflict)

	stored, err := store.GetByID(ctx, a.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.Equal(t, "Ana Torres", stored.Name)
}

func TestUpdateProfile_KeepingOwnEmailIsNotAConflict(t *testing.T) {
	svc, _, _, _ := newAccountFixture()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)

	p, err := svc.UpdateProfile(ctx, a.User.ID, ProfileUpdate{Email: strPtr(" A@x.com ")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", p.Email)
}

func TestChangePassword(t *testing.T) {
	svc, store, _, pub := newAccountFixture()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("a@x.com", "1"))
	require.NoError(t, err)
	writes := store.writeCount()

	err = svc.ChangePassword(ctx, a.User.ID, "secret1", "12345")
	assertKind(t, err, KindValidation)
	assert.Equal(t, writes, store.writeCount())

	err = svc.ChangePassword(ctx, a.User.ID, "", "newsecret")
	assertKind(t, err, KindValidation)

	err = svc.ChangePassword(ctx, a.User.ID, "not-it", "newsecret")
	assertKind(t, err, KindUnauthorized)

	require.NoError(t, svc.ChangePassword(ctx, a.User.ID, "secret1", "newsecret"))
	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assertKind(t, err, KindUnauthorized)
	_, err = svc.Login(ctx, "a@x.com", "newsecret")
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return slices.Contains(pub.types(), queue.EventUserPasswordChanged)
	}, time.Second, 10*time.Millisecond)
}

func TestEnsureAdministrator(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	ctx := context.Background()
	seed := AdminSeed{Email: "admin@farm.test", IdentityNumber: "0000000000", Password: "admin123"}

	created, err := svc.EnsureAdministrator(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdministrator(ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)

	u, err := store.GetByEmail(ctx, "admin@farm.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, u.Role)
	assert.True(t, u.VerifyPassword("admin123"))

	created, err = svc.EnsureAdministrator(ctx, AdminSeed{})
	require.NoError(t, err)
	assert.False(t, created)
}
