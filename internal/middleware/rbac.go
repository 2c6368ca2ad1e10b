package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

// StaffRoles are the roles allowed on the staff endpoints.
var StaffRoles = []string{models.RoleAdmin, models.RoleDirector, models.RoleTeacher}

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[UserRole(c)]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// ResolveSchool returns the school a request may act on. Admins may pick any
// school; everyone else is pinned to the school claim of their token and a
// different requested school is refused.
func ResolveSchool(c *fiber.Ctx, requested uint) (uint, bool) {
	if UserRole(c) == models.RoleAdmin {
		return requested, true
	}
	own := SchoolID(c)
	if own == 0 {
		return 0, false
	}
	if requested != 0 && requested != own {
		return 0, false
	}
	return own, true
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
