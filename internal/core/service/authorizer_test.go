package service

import (
	"errors"
	"testing"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

func TestAuthorize_Anonymous(t *testing.T) {
	task := &domain.Task{ID: "t1", OwnerID: "u1"}
	for _, action := range []Action{ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
		d := Authorize(nil, action, task)
		if d.Allowed {
			t.Fatalf("%s: anonymous must be denied", action)
		}
		if d.Reason != "not authenticated" {
			t.Fatalf("%s: unexpected reason %q", action, d.Reason)
		}
		if !errors.Is(d.Err(), domain.ErrNotAuthenticated) {
			t.Fatalf("%s: expected ErrNotAuthenticated, got %v", action, d.Err())
		}
	}
}

func TestAuthorize_PerTaskActions(t *testing.T) {
	owner := &domain.Principal{ID: "u1", Role: domain.RoleMember}
	other := &domain.Principal{ID: "u2", Role: domain.RoleMember}
	admin := &domain.Principal{ID: "u3", Role: domain.RoleAdmin}
	task := &domain.Task{ID: "t1", OwnerID: "u1"}

	cases := []struct {
		name  string
		p     *domain.Principal
		allow bool
	}{
		{"owner", owner, true},
		{"admin", admin, true},
		{"other member", other, false},
	}

	for _, tc := range cases {
		for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete} {
			d := Authorize(tc.p, action, task)
			if d.Allowed != tc.allow {
				t.Errorf("%s/%s: allowed=%v, want %v", tc.name, action, d.Allowed, tc.allow)
			}
			if !tc.allow {
				if d.Reason != "not authorized" || !errors.Is(d.Err(), domain.ErrForbidden) {
					t.Errorf("%s/%s: unexpected deny %+v", tc.name, action, d)
				}
			}
		}
	}
}

func TestAuthorize_ListAndCreateAlwaysAllowed(t *testing.T) {
	member := &domain.Principal{ID: "u1", Role: domain.RoleMember}
	for _, action := range []Action{ActionList, ActionCreate} {
		if d := Authorize(member, action, nil); !d.Allowed || d.Err() != nil {
			t.Fatalf("%s: expected allow, got %+v", action, d)
		}
	}
}

func TestAuthorize_MissingTaskDenied(t *testing.T) {
	member := &domain.Principal{ID: "u1", Role: domain.RoleMember}
	if d := Authorize(member, ActionUpdate, nil); d.Allowed {
		t.Fatalf("expected deny without a task")
	}
}
