package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/domain"
)

// Permission names granted through user roles.
const (
	PermissionReadFinancialReport = "read_financial_report"
	PermissionAddTransaction      = "add_transaction"
	PermissionEditTransaction     = "edit_transaction"
	PermissionDeleteTransaction   = "delete_transaction"
	PermissionReadTransaction     = "read_transaction"
)

// RoleLinkLookup resolves a user's role-link to a farm.
type RoleLinkLookup interface {
	GetUserRoleFarm(ctx context.Context, userID, farmID int64) (*domain.RoleFarmLink, error)
}

// PermissionLookup lists the permissions of a user role.
type PermissionLookup interface {
	GetRolePermissions(ctx context.Context, userRoleID int64) ([]string, error)
}

// Gate checks that a user may act on a farm.
type Gate struct {
	links RoleLinkLookup
	perms PermissionLookup
	log   zerolog.Logger
}

// NewGate creates a Gate.
func NewGate(links RoleLinkLookup, perms PermissionLookup, log zerolog.Logger) *Gate {
	return &Gate{links: links, perms: perms, log: log}
}

// Authorize returns nil when user has an active role-link to farmID whose role grants
// permission. Missing links and missing permissions both map to forbidden errors.
func (g *Gate) Authorize(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
	link, err := g.links.GetUserRoleFarm(ctx, user.UserID, farmID)
	if err != nil {
		return fmt.Errorf("Authorize: role-link lookup: %w", err)
	}
	if link == nil || !isActiveLink(link) {
		g.log.Warn().
			Int64("user_id", user.UserID).
			Int64("farm_id", farmID).
			Msg("User has no active association with farm")
		return domain.ErrFarmNotLinked
	}

	perms, err := g.perms.GetRolePermissions(ctx, link.UserRoleID)
	if err != nil {
		return fmt.Errorf("Authorize: permission lookup: %w", err)
	}
	for _, p := range perms {
		if p == permission {
			return nil
		}
	}

	g.log.Warn().
		Int64("user_id", user.UserID).
		Int64("farm_id", farmID).
		Int64("user_role_id", link.UserRoleID).
		Str("permission", permission).
		Msg("Permission denied")
	return domain.ErrInsufficientPermission
}

// An empty state is accepted: older farms-service versions do not send it.
func isActiveLink(link *domain.RoleFarmLink) bool {
	state := strings.TrimSpace(link.UserRoleFarmState)
	return state == "" || strings.EqualFold(state, "activo") || strings.EqualFold(state, "active")
}
