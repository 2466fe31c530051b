package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"

	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestRegisterSuccess(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("secret", mock)
	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || tokens.AccessToken == "" {
		t.Fatalf("expected user id and tokens")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService("secret", nil)

	cases := []RegisterRequest{
		{},
		{Username: "al", Email: "a@b.c", Password: "password123"},
		{Username: "alice", Email: "a@b.c", Password: "short"},
	}
	for _, req := range cases {
		_, _, err := svc.Register(context.Background(), req)
		var verr apperr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	svc := NewService("secret", mock)
	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	var verr apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	mock := newMock(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow("user-1", "alice", "alice@example.com", string(hash), time.Now()))
	mock.ExpectExec(`UPDATE users SET last_login`).
		WithArgs("user-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("secret", mock)
	user, tokens, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "user-1" || tokens.AccessToken == "" {
		t.Fatalf("unexpected login result")
	}

	userID, err := svc.ValidateAccessToken(tokens.AccessToken)
	if err != nil || userID != "user-1" {
		t.Fatalf("access token roundtrip failed: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	mock := newMock(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow("user-1", "alice", "alice@example.com", string(hash), time.Now()))

	svc := NewService("secret", mock)
	_, _, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	if err == nil {
		t.Fatalf("expected error for wrong password")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
		WithArgs("ghost").
		WillReturnError(errQuery)

	svc := NewService("secret", mock)
	_, _, err := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "x"})
	if err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestParticipantTokenRoundtrip(t *testing.T) {
	svc := NewService("secret", nil)

	token, err := svc.IssueParticipantToken("part-1", "ABC123", "user-1", "alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := svc.ParseParticipantToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.ParticipantID != "part-1" || claims.SessionCode != "ABC123" || claims.UserID != "user-1" || claims.Name != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParticipantTokenGuest(t *testing.T) {
	svc := NewService("secret", nil)

	token, err := svc.IssueParticipantToken("part-2", "ABC123", "", "Bob")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := svc.ParseParticipantToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "" {
		t.Fatalf("guest token should not carry a user id")
	}
}

func TestParticipantTokenWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", nil).IssueParticipantToken("part-1", "ABC123", "", "Bob")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewService("secret-b", nil).ParseParticipantToken(token); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestValidateRefreshToken(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("secret", mock)
	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT user_id, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("user-1", time.Now().Add(time.Hour)))

	userID, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken)
	if err != nil || userID != "user-1" {
		t.Fatalf("refresh validation failed: %v", err)
	}
}

func TestValidateRefreshTokenExpired(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("secret", mock)
	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(`SELECT user_id, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("user-1", time.Now().Add(-time.Hour)))

	if _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatalf("expected expired refresh token to fail")
	}
}

func TestRevokeRefreshTokens(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("secret", mock)
	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := svc.RevokeRefreshTokens(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// Lookup filters on revoked_at IS NULL, so the token row is gone.
	mock.ExpectQuery(`SELECT user_id, expires_at`).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}))

	if _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatalf("expected revoked refresh token to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var errQuery = errors.New("query error")
