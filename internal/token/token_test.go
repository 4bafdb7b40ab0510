package token

import (
	"errors"
	"testing"
	"time"

	"github.com/rmoldovan/taskgate/internal/user"
)

func newTestService() *Service {
	return NewService("test-secret", time.Hour)
}

func TestIssueAndExtractUsername(t *testing.T) {
	svc := newTestService()

	signed, err := svc.Issue("alice", []string{user.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if signed == "" {
		t.Fatal("expected non-empty token")
	}

	username, err := svc.ExtractUsername(signed)
	if err != nil {
		t.Fatalf("ExtractUsername() error: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected username alice, got %q", username)
	}
}

func TestExtractUsername_Expired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	signed, err := svc.Issue("alice", []string{user.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	_, err = svc.ExtractUsername(signed)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestExtractUsername_Malformed(t *testing.T) {
	svc := newTestService()

	for _, tok := range []string{"", "garbage", "a.b", "not.a.jwt"} {
		if _, err := svc.ExtractUsername(tok); !errors.Is(err, ErrMalformed) {
			t.Errorf("token %q: expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestExtractUsername_WrongKey(t *testing.T) {
	signed, err := NewService("secret-a", time.Hour).Issue("alice", []string{user.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	_, err = NewService("secret-b", time.Hour).ExtractUsername(signed)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for wrong key, got %v", err)
	}
}

func TestIsValid(t *testing.T) {
	svc := newTestService()

	signed, err := svc.Issue("alice", []string{user.RoleManager})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	tests := []struct {
		name string
		u    *user.User
		want bool
	}{
		{
			name: "matching user and roles",
			u:    &user.User{Username: "alice", Roles: []string{user.RoleManager}},
			want: true,
		},
		{
			name: "roles in different order still match",
			u:    &user.User{Username: "alice", Roles: []string{user.RoleManager}},
			want: true,
		},
		{
			name: "different username",
			u:    &user.User{Username: "bob", Roles: []string{user.RoleManager}},
			want: false,
		},
		{
			name: "roles changed since issuance",
			u:    &user.User{Username: "alice", Roles: []string{user.RoleUser}},
			want: false,
		},
		{
			name: "role added since issuance",
			u:    &user.User{Username: "alice", Roles: []string{user.RoleManager, user.RoleAdmin}},
			want: false,
		},
		{
			name: "nil user",
			u:    nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.IsValid(signed, tt.u); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValid_MultiRoleSet(t *testing.T) {
	svc := newTestService()

	signed, err := svc.Issue("carol", []string{user.RoleUser, user.RoleManager})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	u := &user.User{Username: "carol", Roles: []string{user.RoleManager, user.RoleUser}}
	if !svc.IsValid(signed, u) {
		t.Error("expected token to be valid for same role set in different order")
	}
}

func TestIsValid_TamperedToken(t *testing.T) {
	svc := newTestService()

	signed, err := svc.Issue("alice", []string{user.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	u := &user.User{Username: "alice", Roles: []string{user.RoleUser}}
	if svc.IsValid(tampered, u) {
		t.Error("expected tampered token to be invalid")
	}
}
