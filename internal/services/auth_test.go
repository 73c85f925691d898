package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/repos"
	"github.com/wsayer1/empathic-weave/internal/requestdata"
)

const testJWTKey = "test-signing-key"

// authTestDB opens a per-test in-memory database with just the auth tables.
// Raw SQL instead of AutoMigrate because the model tags carry Postgres
// defaults sqlite cannot parse.
func authTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := []string{
		`CREATE TABLE "user" (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE user_token (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			access_token TEXT NOT NULL UNIQUE,
			refresh_token TEXT NOT NULL UNIQUE,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newAuthFixture(t *testing.T) AuthService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	db := authTestDB(t)
	userRepo := repos.NewUserRepo(db, log)
	tokenRepo := repos.NewUserTokenRepo(db, log)
	return NewAuthService(db, log, userRepo, tokenRepo, testJWTKey, time.Hour, 24*time.Hour)
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "  Ada@Example.COM ", "hunter2")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email=%q, want normalized lowercase", user.Email)
	}
	if user.Password == "hunter2" {
		t.Fatalf("password stored in the clear")
	}

	if _, err := svc.RegisterUser(ctx, "ada@example.com", "other"); err == nil {
		t.Fatalf("expected error re-registering the same email")
	}
	if _, err := svc.RegisterUser(ctx, "", "pw"); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if _, err := svc.RegisterUser(ctx, "b@example.com", ""); err == nil {
		t.Fatalf("expected error for missing password")
	}
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if _, _, err := svc.LoginUser(ctx, "ada@example.com", "wrong"); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, _, err := svc.LoginUser(ctx, "nobody@example.com", "hunter2"); err == nil {
		t.Fatalf("expected error for unknown email")
	}

	access, refresh, err := svc.LoginUser(ctx, "ADA@example.com", "hunter2")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatalf("empty token pair from login")
	}

	authed, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(authed)
	if rd == nil || rd.UserID != user.ID {
		t.Fatalf("request data user=%v, want %v", rd, user.ID)
	}
	if rd.SessionID == uuid.Nil {
		t.Fatalf("session id missing from request data")
	}
}

func TestSetContextRejectsForgedToken(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	claims := jwt.MapClaims{
		"user_id":    uuid.New().String(),
		"session_id": uuid.New().String(),
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-real-key"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	if _, err := svc.SetContextFromToken(ctx, forged); err == nil {
		t.Fatalf("expected error for a token signed with the wrong key")
	}
}

func TestRefreshRotatesTheSession(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, "ada@example.com", "hunter2"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	oldAccess, oldRefresh, err := svc.LoginUser(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	refreshCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{RefreshToken: oldRefresh})
	newAccess, newRefresh, err := svc.RefreshUser(refreshCtx)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if newAccess == oldAccess || newRefresh == oldRefresh {
		t.Fatalf("refresh did not rotate the token pair")
	}

	// The rotated-out tokens are dead.
	if _, err := svc.SetContextFromToken(ctx, oldAccess); err == nil {
		t.Fatalf("expected old access token to be rejected after rotation")
	}
	if _, _, err := svc.RefreshUser(refreshCtx); err == nil {
		t.Fatalf("expected old refresh token to be rejected after rotation")
	}
	if _, err := svc.SetContextFromToken(ctx, newAccess); err != nil {
		t.Fatalf("new access token rejected: %v", err)
	}
}

func TestLogoutInvalidatesTheSession(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, "ada@example.com", "hunter2"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	access, _, err := svc.LoginUser(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	authed, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if err := svc.LogoutUser(authed); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, access); err == nil {
		t.Fatalf("expected access token to be dead after logout")
	}
}
