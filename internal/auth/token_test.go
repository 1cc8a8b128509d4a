package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret-at-least-16-bytes")
	identity := Identity{UserID: uuid.New(), Staff: true}

	token, err := manager.Issue(identity, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != identity.UserID {
		t.Fatalf("user ID = %s, want %s", got.UserID, identity.UserID)
	}
	if !got.Staff {
		t.Fatal("staff capability lost in round trip")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewTokenManager("secret-one-16-bytes!").Issue(Identity{UserID: uuid.New()}, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = NewTokenManager("secret-two-16-bytes!").Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret-at-least-16-bytes")
	token, err := manager.Issue(Identity{UserID: uuid.New()}, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret-at-least-16-bytes")
	if _, err := manager.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}
