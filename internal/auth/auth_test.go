package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "hunter2" {
		t.Fatal("hash equals password")
	}
	if !CheckPasswordHash("hunter2", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPasswordHash("hunter3", hash) {
		t.Fatal("wrong password accepted")
	}
	if CheckPasswordHash("hunter2", "not-a-hash") {
		t.Fatal("garbage hash accepted")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken(42, "alice", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Subject != "42" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := ParseToken(token, "other"); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := NewAccessToken(1, "bob", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(token, "secret"); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestClaimsContext(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Fatal("empty context has claims")
	}
	ctx := WithClaims(context.Background(), &Claims{UserID: 3, Username: "c"})
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.UserID != 3 {
		t.Fatalf("claims = %+v, %v", claims, ok)
	}
}

func TestUnverifiedSubject(t *testing.T) {
	token, _ := NewAccessToken(7, "dana", "any-secret", time.Hour)
	if got := UnverifiedSubject(token); got != "7" {
		t.Fatalf("UnverifiedSubject = %q", got)
	}
	if got := UnverifiedSubject("garbage"); got != "" {
		t.Fatalf("UnverifiedSubject(garbage) = %q", got)
	}
}
