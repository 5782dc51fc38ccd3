package gateway

import (
	"net/http"
	"strings"
)

// Cookie names carrying the caller identity. The host application owns
// session management; the gateway only reads the resolved identity.
const (
	UserCookie   = "copilot_user"
	TenantCookie = "copilot_tenant"
	RolesCookie  = "copilot_roles"
)

// Identity is the caller identity derived from request cookies.
type Identity struct {
	UserID   string
	TenantID string
	Roles    []string
}

// identityFromRequest reads the identity cookies. Roles are comma
// separated; blank entries are dropped. Returns false when no user
// cookie is present.
func identityFromRequest(r *http.Request) (Identity, bool) {
	user, err := r.Cookie(UserCookie)
	if err != nil || user.Value == "" {
		return Identity{}, false
	}

	id := Identity{UserID: user.Value}
	if tenant, err := r.Cookie(TenantCookie); err == nil {
		id.TenantID = tenant.Value
	}
	if roles, err := r.Cookie(RolesCookie); err == nil {
		for _, role := range strings.Split(roles.Value, ",") {
			if role = strings.TrimSpace(role); role != "" {
				id.Roles = append(id.Roles, role)
			}
		}
	}
	return id, true
}
