package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRoleIsValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleManager, RoleAdmin} {
		if !r.IsValid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	for _, r := range []Role{"", "user", "OWNER"} {
		if r.IsValid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}

func TestUserValidate(t *testing.T) {
	valid := func() User {
		return User{ID: uuid.New(), Email: "dana@example.com", Role: RoleManager}
	}

	tests := []struct {
		name   string
		mutate func(*User)
		want   error
	}{
		{"valid", func(*User) {}, nil},
		{"missing id", func(u *User) { u.ID = uuid.Nil }, ErrEmptyUserID},
		{"missing email", func(u *User) { u.Email = "" }, ErrEmptyEmail},
		{"unknown role", func(u *User) { u.Role = "OWNER" }, ErrInvalidRole},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := valid()
			tc.mutate(&u)
			if err := u.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUserSummaryAndActor(t *testing.T) {
	var missing *User
	if missing.Summary() != nil {
		t.Error("expected nil summary for nil user")
	}

	u := &User{ID: uuid.New(), Email: "dana@example.com", Role: RoleAdmin}
	s := u.Summary()
	if s.ID != u.ID || s.Email != u.Email || s.Role != u.Role {
		t.Errorf("unexpected summary %+v", s)
	}

	a := NewActor(u)
	if a.ID != u.ID || a.Role != RoleAdmin {
		t.Errorf("unexpected actor %+v", a)
	}
}
