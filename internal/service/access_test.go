package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ifuryst/agencylens/internal/models"
)

func TestManageTargets(t *testing.T) {
	access := NewAccessService(&fakeMembers{members: []models.CompanyMember{
		{CompanyID: "a", UserID: "u1", Role: models.RoleOwner},
		{CompanyID: "b", UserID: "u1", Role: models.RoleAdmin},
		{CompanyID: "c", UserID: "u1", Role: models.RoleViewer},
		{CompanyID: "c", UserID: "u2", Role: models.RoleViewer},
	}})

	tests := []struct {
		name    string
		user    string
		admin   bool
		ids     []string
		want    []string
		wantErr bool
	}{
		{"explicit managed", "u1", false, []string{"a", "b"}, []string{"a", "b"}, false},
		{"viewer role is not enough", "u1", false, []string{"a", "c"}, nil, true},
		{"implicit uses managed set", "u1", false, nil, []string{"a", "b"}, false},
		{"nothing managed", "u2", false, nil, nil, true},
		{"unknown user", "u3", false, []string{"a"}, nil, true},
		{"global admin any", "u3", true, []string{"z"}, []string{"z"}, false},
		{"global admin all", "u3", true, nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := access.ManageTargets(context.Background(), tt.user, tt.admin, tt.ids)
			if tt.wantErr {
				if !errors.Is(err, ErrForbidden) {
					t.Errorf("err = %v, want ErrForbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("targets = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanView(t *testing.T) {
	access := NewAccessService(&fakeMembers{members: []models.CompanyMember{
		{CompanyID: "a", UserID: "u1", Role: models.RoleViewer},
	}})
	ctx := context.Background()

	if err := access.CanView(ctx, "u1", false, "a"); err != nil {
		t.Errorf("member: %v", err)
	}
	if err := access.CanView(ctx, "u1", false, "b"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non member: %v", err)
	}
	if err := access.CanView(ctx, "u9", true, "b"); err != nil {
		t.Errorf("admin: %v", err)
	}

	broken := NewAccessService(&fakeMembers{err: errDown})
	if err := broken.CanView(ctx, "u1", false, "a"); !errors.Is(err, errDown) {
		t.Errorf("repo failure: %v", err)
	}
}
