package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/repo"
)

func TestRegisterLoginVerify(t *testing.T) {
	s := &AuthService{Users: repo.NewMemoryRepo(), JWTSecret: "k", TokenTTL: time.Hour}
	ctx := context.Background()

	tok, u, err := s.Register(ctx, " 0411222333 ", "", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "0411222333", u.Phone)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	id, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, domain.RoleUser, id.Role)

	var conflict ErrConflict
	_, _, err = s.Register(ctx, "0411222333", "", "another1")
	assert.ErrorAs(t, err, &conflict)

	var bad ErrBadRequest
	_, _, err = s.Register(ctx, "0499", "", "short")
	assert.ErrorAs(t, err, &bad)

	_, _, err = s.Login(ctx, "0411222333", "hunter22")
	assert.NoError(t, err)

	var unauth ErrUnauthorized
	_, _, err = s.Login(ctx, "0411222333", "wrong-pass")
	assert.ErrorAs(t, err, &unauth)
	_, _, err = s.Login(ctx, "0400000000", "hunter22")
	assert.ErrorAs(t, err, &unauth)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	s := &AuthService{JWTSecret: "k"}
	var unauth ErrUnauthorized

	other := &AuthService{JWTSecret: "other"}
	tok, err := other.Issue(&domain.User{ID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = s.Verify(tok)
	assert.ErrorAs(t, err, &unauth)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	raw, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = s.Verify(raw)
	assert.ErrorAs(t, err, &unauth)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u1"})
	raw, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(raw)
	assert.ErrorAs(t, err, &unauth)
}
