package service

import (
	"context"
	"fmt"

	"github.com/ifuryst/agencylens/internal/repository"
)

// RoleAdmin is the global role carried in the JWT for agency operators
const RoleAdmin = "admin"

// AccessService answers company membership questions for a user
type AccessService struct {
	members repository.MemberRepo
}

func NewAccessService(members repository.MemberRepo) *AccessService {
	return &AccessService{members: members}
}

// ManageTargets resolves which companies a user may trigger a sync for.
// With explicit ids every one must be owned or administered by the user.
// Without ids a global admin targets everything (nil) and anyone else
// targets the companies they manage.
func (a *AccessService) ManageTargets(ctx context.Context, userID string, globalAdmin bool, companyIDs []string) ([]string, error) {
	if globalAdmin {
		return companyIDs, nil
	}

	members, err := a.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	managed := make(map[string]bool, len(members))
	var all []string
	for _, m := range members {
		if m.Role.CanManage() {
			managed[m.CompanyID] = true
			all = append(all, m.CompanyID)
		}
	}

	if len(companyIDs) == 0 {
		if len(all) == 0 {
			return nil, ErrForbidden
		}
		return all, nil
	}
	for _, id := range companyIDs {
		if !managed[id] {
			return nil, fmt.Errorf("%w: %s", ErrForbidden, id)
		}
	}
	return companyIDs, nil
}

// CanView reports whether the user belongs to the company in any role
func (a *AccessService) CanView(ctx context.Context, userID string, globalAdmin bool, companyID string) error {
	if globalAdmin {
		return nil
	}
	members, err := a.members.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list memberships: %w", err)
	}
	for _, m := range members {
		if m.CompanyID == companyID {
			return nil
		}
	}
	return ErrForbidden
}
