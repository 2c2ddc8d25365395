package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOrganizerAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	organizer, token, err := f.authSvc.RegisterOrganizer(ctx, "to@example.com", "long enough password")
	require.NoError(t, err)
	assert.NotZero(t, organizer.ID)
	assert.NotEqual(t, "long enough password", organizer.PasswordHash)
	require.NotEmpty(t, token)

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(organizer.ID), claims["organizer_id"])
	assert.Equal(t, "to@example.com", claims["email"])

	loggedIn, token, err := f.authSvc.Login(ctx, LoginInput{Email: "to@example.com", Password: "long enough password"})
	require.NoError(t, err)
	assert.Equal(t, organizer.ID, loggedIn.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterOrganizerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.authSvc.RegisterOrganizer(ctx, "", "long enough password")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = f.authSvc.RegisterOrganizer(ctx, "to@example.com", "short")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = f.authSvc.RegisterOrganizer(ctx, "to@example.com", "long enough password")
	require.NoError(t, err)
	_, _, err = f.authSvc.RegisterOrganizer(ctx, "to@example.com", "another password")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.authSvc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.authSvc.RegisterOrganizer(ctx, "to@example.com", "long enough password")
	require.NoError(t, err)

	_, _, err = f.authSvc.Login(ctx, LoginInput{Email: "to@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrValidation)
}
