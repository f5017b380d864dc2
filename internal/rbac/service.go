package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Service turns host group memberships into permissions.
type Service struct {
	dir    Directory
	grants Grants
}

// NewService constructs a Service. Nil grants fall back to DefaultGrants.
func NewService(dir Directory, grants Grants) *Service {
	if grants == nil {
		grants = DefaultGrants
	}
	return &Service{dir: dir, grants: grants}
}

// EffectivePermissions returns deduplicated, sorted permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	groups, err := s.dir.UserGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: user %d groups: %w", userID, err)
	}
	set := make(map[string]struct{})
	for _, group := range groups {
		for _, perm := range s.grants[strings.TrimSpace(group)] {
			set[strings.ToLower(perm)] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms, nil
}

// PartnerID returns the commercial partner of a user, or zero when unset.
func (s *Service) PartnerID(ctx context.Context, userID int64) (int64, error) {
	id, err := s.dir.UserPartner(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("rbac: user %d partner: %w", userID, err)
	}
	return id, nil
}

// Identify resolves the partner and permissions of a user.
func (s *Service) Identify(ctx context.Context, userID int64) (Identity, error) {
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	partner, err := s.PartnerID(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, PartnerID: partner, Permissions: perms}, nil
}
