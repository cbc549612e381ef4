package auth

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/civicpulse/civicpulse/pkg/appctx"
)

// Capability is a single action class a principal may perform. Command
// handlers check capabilities explicitly at their entry point; the state
// machine itself only enforces structural legality.
type Capability string

const (
	CapabilityReview    Capability = "review"
	CapabilityAssign    Capability = "assign"
	CapabilityResolve   Capability = "resolve"
	CapabilityReject    Capability = "reject"
	CapabilityTransfer  Capability = "transfer"
	CapabilityReopen    Capability = "reopen"
	CapabilitySupport   Capability = "support"
	CapabilityAnalytics Capability = "analytics"
	CapabilityRefresh   Capability = "refresh"
)

// Well-known roles carried by the authenticated principal
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleEmployee   = "EMPLOYEE"
	RoleCitizen    = "CITIZEN"
)

var roleCapabilities = map[string][]Capability{
	RoleAdmin: {
		CapabilityReview, CapabilityAssign, CapabilityResolve, CapabilityReject,
		CapabilityTransfer, CapabilityReopen, CapabilitySupport,
		CapabilityAnalytics, CapabilityRefresh,
	},
	RoleSupervisor: {
		CapabilityReview, CapabilityAssign, CapabilityReject, CapabilityTransfer,
		CapabilityReopen, CapabilityAnalytics, CapabilityRefresh,
	},
	RoleEmployee: {
		CapabilityResolve, CapabilityAnalytics,
	},
	RoleCitizen: {
		CapabilitySupport, CapabilityReopen,
	},
}

// HasCapability reports whether any of the roles grants the capability
func HasCapability(roles []string, capability Capability) bool {
	for _, role := range roles {
		for _, c := range roleCapabilities[role] {
			if c == capability {
				return true
			}
		}
	}
	return false
}

// Require checks the request principal for a capability and returns a typed
// 403 when it is missing and 401 when there is no principal at all.
func Require(ctx context.Context, capability Capability) error {
	if appctx.GetUserID(ctx) == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if !HasCapability(appctx.GetRoles(ctx), capability) {
		return httperror.NewHTTPErrorf(http.StatusForbidden, "missing capability '%s'", capability)
	}

	return nil
}
