package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typingclash/internal/models"
	"typingclash/internal/validation"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.db.Exec("INSERT INTO bad_words (word) VALUES (?)", "rude")
	require.NoError(t, err)

	env.signup(t, "taken", models.RoleStudent)
	env.signup(t, "mum", models.RoleParent)

	tests := []struct {
		name    string
		in      SignupInput
		wantErr error
	}{
		{
			name:    "duplicate account name",
			in:      SignupInput{AccountName: "taken", Password: "password123", Role: models.RoleStudent},
			wantErr: ErrAccountNameTaken,
		},
		{
			name:    "duplicate email",
			in:      SignupInput{AccountName: "dad", Password: "password123", Email: "MUM@example.com", Role: models.RoleParent},
			wantErr: ErrEmailTaken,
		},
		{
			name:    "blocked nickname",
			in:      SignupInput{AccountName: "kid2", Password: "password123", Nickname: "Rude Kid", Role: models.RoleStudent},
			wantErr: ErrInappropriateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Signup(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid input reports fields", func(t *testing.T) {
		_, _, err := env.auth.Signup(ctx, SignupInput{AccountName: "No Spaces", Password: "short", Role: "teacher"})
		var verrs validation.Errors
		require.True(t, errors.As(err, &verrs), "err = %v", err)
		fields := verrs.Fields()
		assert.Contains(t, fields, "accountName")
		assert.Contains(t, fields, "password")
		assert.Contains(t, fields, "role")
	})

	t.Run("parent needs an email", func(t *testing.T) {
		_, _, err := env.auth.Signup(ctx, SignupInput{AccountName: "noemail", Password: "password123", Role: models.RoleParent})
		var verr validation.ValidationError
		assert.True(t, errors.As(err, &verr), "err = %v", err)
	})

	t.Run("student gets invite code and progress", func(t *testing.T) {
		session, user, err := env.auth.Signup(ctx, SignupInput{AccountName: "newkid", Password: "password123", Role: models.RoleStudent})
		require.NoError(t, err)
		assert.NotEmpty(t, user.InviteCode)
		assert.Equal(t, "newkid", user.Nickname)
		assert.Equal(t, user.ID, session.UserID)

		p, err := env.progress.Get(user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.CurrentDay)
		assert.Equal(t, 0, p.TotalPoints)
	})

	t.Run("closed signup", func(t *testing.T) {
		require.NoError(t, env.settings.SetSignupClosed(true))
		t.Cleanup(func() { _ = env.settings.SetSignupClosed(false) })
		_, _, err := env.auth.Signup(ctx, SignupInput{AccountName: "latecomer", Password: "password123", Role: models.RoleStudent})
		assert.ErrorIs(t, err, ErrSignupClosed)
	})
}

func TestLoginAndSessions(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signup(t, "mum", models.RoleParent)

	t.Run("login by account name or email", func(t *testing.T) {
		for _, login := range []string{"mum", "Mum@Example.com"} {
			session, user, err := env.auth.Login(login, "password123")
			require.NoError(t, err, login)
			assert.Equal(t, parent.ID, user.ID)
			assert.NotEmpty(t, session.ID)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		_, _, err := env.auth.Login("mum", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, err = env.auth.Login("nobody", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("session expiry", func(t *testing.T) {
		session, _, err := env.auth.Login("mum", "password123")
		require.NoError(t, err)

		user, err := env.auth.ValidateSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, parent.ID, user.ID)

		env.clock.Advance(25 * time.Hour)
		_, err = env.auth.ValidateSession(session.ID)
		assert.ErrorIs(t, err, ErrSessionExpired)
		_, err = env.auth.ValidateSession(session.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("logout", func(t *testing.T) {
		session, _, err := env.auth.Login("mum", "password123")
		require.NoError(t, err)
		require.NoError(t, env.auth.Logout(session.ID))
		_, err = env.auth.ValidateSession(session.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("cleanup expired", func(t *testing.T) {
		_, _, err := env.auth.Login("mum", "password123")
		require.NoError(t, err)
		env.clock.Advance(48 * time.Hour)
		n, err := env.auth.CleanupExpiredSessions()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
	})
}

func TestTokens(t *testing.T) {
	env := newTestEnv(t)
	kid := env.signup(t, "kid", models.RoleStudent)

	token, expires, err := env.auth.IssueToken(kid)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	user, err := env.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, kid.ID, user.ID)

	_, err = env.auth.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestAccountNames(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "kid", models.RoleStudent)

	ok, err := env.auth.AccountNameAvailable("kid")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.auth.AccountNameAvailable("otherkid")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.auth.AccountNameAvailable("Bad Name")
	assert.Error(t, err)

	name, err := env.auth.SuggestAccountName()
	require.NoError(t, err)
	assert.NoError(t, validation.ValidateAccountName(name))
}

func TestOAuthLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing := env.signup(t, "mum", models.RoleParent)

	t.Run("links existing account by email", func(t *testing.T) {
		_, user, err := env.auth.OAuthLogin(ctx, "google", "sub-1", "mum@example.com", "Mum")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)

		linked, err := env.users.GetUserByOAuth("google", "sub-1")
		require.NoError(t, err)
		require.NotNil(t, linked)
		assert.Equal(t, existing.ID, linked.ID)
	})

	t.Run("creates a parent for a new identity", func(t *testing.T) {
		_, user, err := env.auth.OAuthLogin(ctx, "google", "sub-2", "dad@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, models.RoleParent, user.Role)
		assert.Equal(t, "dad", user.Nickname)

		_, again, err := env.auth.OAuthLogin(ctx, "google", "sub-2", "dad@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
	})

	t.Run("rejects missing email", func(t *testing.T) {
		_, _, err := env.auth.OAuthLogin(ctx, "google", "sub-3", "", "")
		assert.Error(t, err)
	})
}
