package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUser_SetAndVerifyPassword(t *testing.T) {
	u := &User{}
	for _, pw := range []string{"secret", "pässwörd-ü", "123456"} {
		require.NoError(t, u.SetPassword(pw, bcrypt.MinCost))
		assert.NotEqual(t, pw, u.PasswordHash)
		assert.True(t, u.VerifyPassword(pw))
		assert.False(t, u.VerifyPassword(pw+"x"))
	}
	// Only the latest plaintext verifies.
	assert.False(t, u.VerifyPassword("secret"))
}

func TestUser_SetPasswordKeepsHashOnError(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("secret", bcrypt.MinCost))
	before := u.PasswordHash

	// bcrypt refuses inputs longer than 72 bytes.
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, u.SetPassword(string(long), bcrypt.MinCost))
	assert.Equal(t, before, u.PasswordHash)
}

func TestUser_ProfileOmitsCredential(t *testing.T) {
	u := &User{ID: 3, Name: "Ana", Email: "ana@farm.test", Role: RoleWorker, PasswordHash: "$2a$hash", Active: true}
	b, err := json.Marshal(u.Profile())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "password")
	assert.Contains(t, string(b), `"role":"worker"`)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleWorker.Valid())
	assert.True(t, RoleAdministrator.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-14"`), &d))
	assert.Equal(t, time.March, d.Month())

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-14T10:00:00Z"`), &d))
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-14"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`"14/03/2025"`), &d))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-01", d.String())

	require.NoError(t, d.Scan([]byte("2023-01-09")))
	assert.Equal(t, "2023-01-09", d.String())

	assert.Error(t, d.Scan(42))
}
