package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/hubstore/pkg/domain"
	"github.com/prisken/hubstore/pkg/registry"
)

func newTestService(t *testing.T) *PasswordService {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return NewPasswordService(reg.Users())
}

func TestPasswordService_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateUser(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Name)
	assert.Nil(t, created.LastLoginAt)
	assert.NotEqual(t, "secret", created.PasswordHash)

	authed, err := svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)
	assert.NotNil(t, authed.LastLoginAt)
}

func TestPasswordService_InvalidCredentialsIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, "alice", "secret")
	require.NoError(t, err)

	_, wrongPassword := svc.Authenticate(ctx, "alice", "wrong")
	_, unknownUser := svc.Authenticate(ctx, "bob", "anything")

	// Wrong password and unknown user must be the same error so callers
	// cannot enumerate accounts.
	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestPasswordService_DuplicateName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, "alice", "secret")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestPasswordService_EmptyName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, "   ", "secret")
	assert.Error(t, err)
}
