package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/storage"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/sqlite"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.Open(sqlite.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, bcrypt.MinCost)
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, " alice ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	session := models.NewSession()
	got, err := svc.SignIn(ctx, session, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, session.Authenticated)
	assert.Equal(t, consts.StartingBalance, session.Balance)
}

func TestSignInFailures(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "bob", "hunter22")
	require.NoError(t, err)

	session := models.NewSession()
	_, err = svc.SignIn(ctx, session, "bob", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, session, "carol", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, session.Authenticated)
}

func TestSignUpValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "", "secret1")
	assert.ErrorIs(t, err, ErrEmptyUsername)
	_, err = svc.SignUp(ctx, "dave", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.SignUp(ctx, "dave", "secret1")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "dave", "secret2")
	assert.ErrorIs(t, err, storage.ErrUserExists)
}
