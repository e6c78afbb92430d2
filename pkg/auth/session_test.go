package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/hubstore/pkg/domain"
)

func TestSessionService_IssueAndVerify(t *testing.T) {
	svc := NewSessionService(SessionConfig{
		JWTSecret: []byte("test-secret-at-least-32-characters"),
		Issuer:    "hubstore-test",
	})

	user := &domain.User{ID: uuid.New(), Name: "alice", CreatedAt: time.Now()}

	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "hubstore-test", claims.Issuer)
}

func TestSessionService_WrongSecretRejected(t *testing.T) {
	issuer := NewSessionService(SessionConfig{JWTSecret: []byte("secret-one-secret-one-secret-one"), Issuer: "hubstore"})
	verifier := NewSessionService(SessionConfig{JWTSecret: []byte("secret-two-secret-two-secret-two"), Issuer: "hubstore"})

	user := &domain.User{ID: uuid.New(), Name: "alice"}
	token, err := issuer.IssueToken(user)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

func TestSessionService_DefaultTTL(t *testing.T) {
	svc := NewSessionService(SessionConfig{JWTSecret: []byte("x")})
	assert.Equal(t, DefaultAccessTokenTTL, svc.config.AccessTokenTTL)
}
