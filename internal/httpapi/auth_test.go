package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"lfpanel/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

const testSecret = "test-secret-key-with-32-characters!"

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      RoleAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager(context.Background(), testSecret, time.Hour, store)
	if _, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
	if store.updates != 1 {
		t.Fatalf("expected one password upgrade, got %d", store.updates)
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager(context.Background(), testSecret, time.Hour, store)

	user, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "Muhasebe",
		Password: "pass12345",
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.Username != "muhasebe" || user.Role != RoleViewer {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Password != "" {
		t.Fatalf("expected password hash to stay out of the response")
	}

	stored := store.users["muhasebe"]
	if !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", stored.Password)
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "muhasebe",
		Password: "pass12345",
	})
	if err != nil {
		t.Fatalf("login with new user failed: %v", err)
	}
	if resp.Role != RoleViewer {
		t.Fatalf("expected viewer role, got %s", resp.Role)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	manager := NewAuthManager(context.Background(), testSecret, time.Hour, &userStoreStub{})

	_, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "cashier",
		Password: "pass12345",
		Role:     "cashier",
	})
	if err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager(context.Background(), testSecret, time.Hour, nil)

	token, err := manager.sign("admin", RoleAdmin, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}

	expired, err := manager.sign("admin", RoleAdmin, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	other := NewAuthManager(context.Background(), "another-secret-key-with-32-chars!!", time.Hour, nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	hash, err := hashPassword("viewer-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	store := &userStoreStub{users: map[string]domain.UserAccount{
		"viewer": {Username: "viewer", Password: hash, Role: RoleViewer, Active: false},
	}}
	manager := NewAuthManager(context.Background(), testSecret, time.Hour, store)

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "viewer", Password: "viewer-pass"}); err == nil {
		t.Fatalf("expected inactive account to be rejected")
	}
}
