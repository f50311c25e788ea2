package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ladleapp/ladle-server/internal/domain"
	"github.com/ladleapp/ladle-server/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	u := &domain.User{
		ID:           "user-1",
		Email:        "cook@example.com",
		PasswordHash: "$argon2id$hash",
		Name:         "Julia",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "cook@example.com" {
		t.Errorf("Email: got %q, want %q", got.Email, "cook@example.com")
	}
	if got.PasswordHash != "$argon2id$hash" {
		t.Errorf("PasswordHash: got %q, want %q", got.PasswordHash, "$argon2id$hash")
	}
	if got.Name != "Julia" {
		t.Errorf("Name: got %q, want %q", got.Name, "Julia")
	}
	if got.CreatedAt.Unix() != now.Unix() {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, now)
	}
	if !got.LastLoginAt.IsZero() {
		t.Errorf("LastLoginAt: expected zero, got %v", got.LastLoginAt)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestUser(t, s, "user-ci", "Cook@Example.com")

	got, err := s.GetUserByEmail(ctx, "cook@example.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != "user-ci" {
		t.Errorf("ID: got %q, want %q", got.ID, "user-ci")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestUser(t, s, "user-d1", "dup@example.com")

	now := time.Now()
	u2 := &domain.User{
		ID:           "user-d2",
		Email:        "DUP@example.com", // different case, same address
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.CreateUser(ctx, u2)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := insertTestUser(t, s, "user-u1", "update@example.com")

	u.Name = "New Name"
	u.PasswordHash = "$argon2id$newhash"
	u.LastLoginAt = time.Now()
	u.Touch()

	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("Name: got %q, want %q", got.Name, "New Name")
	}
	if got.PasswordHash != "$argon2id$newhash" {
		t.Errorf("PasswordHash not updated: got %q", got.PasswordHash)
	}
	if got.LastLoginAt.IsZero() {
		t.Error("LastLoginAt: expected non-zero after update")
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	u := &domain.User{
		ID:        "user-ghost",
		Email:     "ghost@example.com",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := s.UpdateUser(context.Background(), u)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser_EmailCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestUser(t, s, "user-e1", "first@example.com")
	u2 := insertTestUser(t, s, "user-e2", "second@example.com")

	u2.Email = "first@example.com"
	u2.Touch()
	err := s.UpdateUser(ctx, u2)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
